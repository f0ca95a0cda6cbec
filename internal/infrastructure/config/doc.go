// Package config loads and validates the daemon configuration.
//
// Configuration is read once at startup from a YAML file, then
// selected fields are overridden from USBHOST_* environment
// variables (database path, broker credentials, API listen
// address, the InfluxDB token, and the USB debug flag).
// Validation rejects configurations the daemon cannot run with,
// such as an empty database path or an out-of-range MQTT QoS.
//
//	cfg, err := config.Load(*configPath)
//	if err != nil {
//	    return err
//	}
//
// Secrets should come from the environment rather than the file;
// keep the file itself at 0600 when it must hold any.
package config
