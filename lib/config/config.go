package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"netcrypt/lib/transport/netcrypt"
	"netcrypt/lib/util"
	"netcrypt/lib/util/logger"
)

var log = logger.GetLogger()

// CfgFile, set by the root command's --config flag, overrides the default
// config file discovery below.
var CfgFile string

const baseDirName = ".netcrypt"

// InitConfig wires viper: an explicit --config file if given, otherwise
// $HOME/.netcrypt/config.yaml, with every setting defaulted so a missing
// file is never an error.
func InitConfig() {
	if CfgFile != "" {
		if !util.CheckFileExists(CfgFile) {
			log.WithField("path", CfgFile).Warn("netcrypt: --config file does not exist, using defaults")
		}
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BaseDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.WithError(err).Warn("netcrypt: failed to read config file, using defaults")
		}
	}
}

// setDefaults mirrors DefaultPolicy's nominal policy constants and adds the
// fast-rekey test override.
func setDefaults() {
	def := netcrypt.DefaultPolicy()
	viper.SetDefault("netcrypt.fast_rekey", false)
	viper.SetDefault("netcrypt.rekey_bytes", def.RekeyBytes)
	viper.SetDefault("netcrypt.rekey_interval_seconds", int(def.RekeyInterval.Seconds()))
	viper.SetDefault("netcrypt.abort_bytes", def.AbortBytes)
	viper.SetDefault("netcrypt.abort_interval_seconds", int(def.AbortInterval.Seconds()))
	viper.SetDefault("netcrypt.min_rekey_interval_seconds", int(def.MinRekeyInterval.Seconds()))
	viper.SetDefault("netcrypt.max_message_size", def.MaxMessageSize)
}

// PolicyFromViper builds a netcrypt.Policy from the current viper settings,
// overriding every field with the fast-test schedule wholesale when
// netcrypt.fast_rekey is set.
func PolicyFromViper() netcrypt.Policy {
	if viper.GetBool("netcrypt.fast_rekey") {
		return netcrypt.FastRekeyPolicy()
	}
	return netcrypt.Policy{
		RekeyBytes:       viper.GetUint64("netcrypt.rekey_bytes"),
		RekeyInterval:    time.Duration(viper.GetInt64("netcrypt.rekey_interval_seconds")) * time.Second,
		AbortBytes:       viper.GetUint64("netcrypt.abort_bytes"),
		AbortInterval:    time.Duration(viper.GetInt64("netcrypt.abort_interval_seconds")) * time.Second,
		MinRekeyInterval: time.Duration(viper.GetInt64("netcrypt.min_rekey_interval_seconds")) * time.Second,
		MaxMessageSize:   uint32(viper.GetUint("netcrypt.max_message_size")),
	}
}

// BaseDir returns $HOME/.netcrypt, creating it if absent.
func BaseDir() string {
	dir := filepath.Join(util.UserHome(), baseDirName)
	_ = os.MkdirAll(dir, 0o700)
	return dir
}
