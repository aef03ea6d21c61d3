package netcrypt

import "time"

// Policy holds the rekey/abort thresholds that govern a Session's key
// lifetime and abuse resistance. Values are sourced from lib/config at
// construction time via viper-backed defaults.
type Policy struct {
	// RekeyBytes is the number of bytes encrypted on one direction before
	// a send-side rekey is signalled to the peer.
	RekeyBytes uint64

	// RekeyInterval is the wall-clock duration since the last send-side
	// rekey before one is signalled, independent of byte volume.
	RekeyInterval time.Duration

	// AbortBytes is the receive-side byte ceiling (strictly greater than
	// RekeyBytes) past which a peer that failed to respect rekey limits is
	// treated as abusive and the connection is terminated.
	AbortBytes uint64

	// AbortInterval is the receive-side wall-clock ceiling since the last
	// send-side rekey past which the connection is terminated.
	AbortInterval time.Duration

	// MinRekeyInterval is the minimum wall-clock spacing between
	// peer-requested (in-band flag) rekeys on the receive side. Protects
	// against a rekey-storm DoS; a violation yields ErrRekeyRefused.
	MinRekeyInterval time.Duration

	// MaxMessageSize is the largest message_size the streaming decoder
	// will accept before declaring ErrMalformedHeader.
	MaxMessageSize uint32
}

// Nominal production policy constants.
const (
	defaultRekeyBytes       = 1 << 30 // 1 GiB
	defaultRekeyInterval    = 10 * time.Minute
	defaultAbortBytes       = 4 * (1 << 30) // strictly greater than RekeyBytes
	defaultAbortInterval    = 20 * time.Minute
	defaultMinRekeyInterval = 10 * time.Second
	defaultMaxMessageSize   = 32 << 20 // 32 MiB

	// Fast-test schedule, enabled via lib/config's netcrypt.fast_rekey flag.
	fastRekeyBytes    = 12 * 1024
	fastRekeyInterval = 10 * time.Second
)

// DefaultPolicy returns the nominal production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		RekeyBytes:       defaultRekeyBytes,
		RekeyInterval:    defaultRekeyInterval,
		AbortBytes:       defaultAbortBytes,
		AbortInterval:    defaultAbortInterval,
		MinRekeyInterval: defaultMinRekeyInterval,
		MaxMessageSize:   defaultMaxMessageSize,
	}
}

// FastRekeyPolicy returns the insane, test-only rekey schedule: 12KiB or 10
// seconds. Abort/min-rekey/max-size thresholds are left at production
// values since only the rekey trigger itself is meant to be sped up.
func FastRekeyPolicy() Policy {
	p := DefaultPolicy()
	p.RekeyBytes = fastRekeyBytes
	p.RekeyInterval = fastRekeyInterval
	return p
}
