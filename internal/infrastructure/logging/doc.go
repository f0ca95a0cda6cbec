// Package logging builds the daemon's structured slog logger.
//
// Every record carries the service name and build version, and
// subsystems tag their records with a component field via
// Logger.Component. Output format (json or text), destination
// (stdout or stderr), and minimum level come from LoggingConfig:
//
//	log := logging.New(cfg.Logging, version)
//	usbLog := log.Component("usb")
//	usbLog.Info("device arrived", "identity", "1d6b:0003")
//
// Unknown level or format strings fall back to info/json rather
// than failing startup. Do not log payloads that may contain
// credentials; log identifiers and prefixes instead.
package logging
