package main

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"netcrypt/lib/config"
	"netcrypt/lib/transport/netcrypt"
	"netcrypt/lib/util"
	"netcrypt/lib/util/logger"
	"netcrypt/lib/util/signals"
)

var log = logger.GetLogger()

// netcryptctl is a thin demo CLI exercising the transport over a real
// net.Conn: `listen` accepts one connection and echoes decrypted payloads
// back encrypted; `dial` connects, performs the initiator handshake, and
// sends stdin lines as encrypted "echo" frames. Neither command is part of
// the transport itself — all cryptographic logic lives in
// lib/transport/netcrypt.
func main() {
	root := &cobra.Command{
		Use:   "netcryptctl",
		Short: "Demo peer for the encrypted transport layer",
	}
	root.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file (default $HOME/.netcrypt/config.yaml)")
	cobra.OnInitialize(config.InitConfig)

	var listenAddr string
	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Accept one connection and act as the handshake responder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(listenAddr)
		},
	}
	listenCmd.Flags().StringVar(&listenAddr, "addr", "127.0.0.1:8333", "address to listen on")

	var dialAddr string
	dialCmd := &cobra.Command{
		Use:   "dial",
		Short: "Connect and act as the handshake initiator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDial(dialAddr)
		},
	}
	dialCmd.Flags().StringVar(&dialAddr, "addr", "127.0.0.1:8333", "address to dial")

	root.AddCommand(listenCmd, dialCmd)

	go signals.Handle()
	signals.RegisterInterruptHandler(func() {
		log.Debug("netcryptctl: shutting down")
		util.CloseSessions()
		os.Exit(0)
	})

	if err := root.Execute(); err != nil {
		log.WithError(err).Error("netcryptctl: command failed")
		os.Exit(1)
	}
}

func runListen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	log.WithField("addr", addr).Debug("netcryptctl: listening")

	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	session, err := netcrypt.NewSession(netcrypt.RoleResponder, config.PolicyFromViper(), clock.New())
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	defer session.Close()
	util.RegisterSession(session)

	if err := respondHandshake(conn, session); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	log.Debug("netcryptctl: handshake complete, echoing")
	return echoLoop(conn, session)
}

func runDial(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	session, err := netcrypt.NewSession(netcrypt.RoleInitiator, config.PolicyFromViper(), clock.New())
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	defer session.Close()
	util.RegisterSession(session)

	if err := initiateHandshake(conn, session); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	log.Debug("netcryptctl: handshake complete, type lines to send")
	return sendLoop(conn, session)
}

func initiateHandshake(conn net.Conn, session *netcrypt.Session) error {
	local := session.HandshakeInit()
	if _, err := conn.Write(local[:]); err != nil {
		return err
	}
	peer, err := readHandshakeBlock(conn)
	if err != nil {
		return err
	}
	return session.HandshakeProcess(peer)
}

func respondHandshake(conn net.Conn, session *netcrypt.Session) error {
	peer, err := readHandshakeBlock(conn)
	if err != nil {
		return err
	}
	// HandshakeProcess clears the ephemeral key, so take the local public
	// key first.
	local := session.HandshakeInit()
	if err := session.HandshakeProcess(peer); err != nil {
		return err
	}
	_, err = conn.Write(local[:])
	return err
}

func readHandshakeBlock(conn net.Conn) ([32]byte, error) {
	reader := &netcrypt.HandshakeReader{}
	buf := make([]byte, 32)
	for !reader.Complete() {
		n, err := conn.Read(buf)
		if err != nil {
			return [32]byte{}, err
		}
		if _, err := reader.Read(buf[:n]); err != nil {
			return [32]byte{}, err
		}
	}
	return reader.PeerKey(), nil
}

func sendLoop(conn net.Conn, session *netcrypt.Session) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := sendFrame(conn, session, "echo", scanner.Bytes()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func echoLoop(conn net.Conn, session *netcrypt.Session) error {
	decoder := netcrypt.NewDecoder(session)
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		chunk := buf[:n]
		for len(chunk) > 0 {
			consumed, err := decoder.Read(chunk)
			if err != nil {
				return err
			}
			chunk = chunk[consumed:]
			if decoder.Complete() {
				payload := append([]byte(nil), decoder.Payload()...)
				log.WithField("command", decoder.Command()).Debug("netcryptctl: received frame")
				if err := sendFrame(conn, session, "echo", payload); err != nil {
					return err
				}
			}
		}
	}
}

func sendFrame(conn net.Conn, session *netcrypt.Session, command string, body []byte) error {
	plainLen := netcrypt.CommandLen + len(body)
	buf := make([]byte, netcrypt.AADLen+plainLen)
	buf[0] = byte(plainLen)
	buf[1] = byte(plainLen >> 8)
	buf[2] = byte(plainLen >> 16)
	copy(buf[netcrypt.AADLen:], netcrypt.EncodeCommand(command))
	copy(buf[netcrypt.AADLen+netcrypt.CommandLen:], body)

	frame, err := session.Encrypt(buf)
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}
