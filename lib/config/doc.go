// Package config loads the transport's policy knobs via viper, using the
// familiar InitConfig/setDefaults split, scaled down to the handful of
// settings the transport consumes from its collaborators: the fast-rekey
// test flag and the policy constants themselves.
package config
