// Package influxdb ships hot-plug telemetry to InfluxDB.
//
// Two measurements are written: usb_events, one point per arrival or
// removal tagged by identity and event type, and usb_registry, a
// periodic gauge of registry size broken down by lifecycle state.
// The package wraps influxdb-client-go v2 and is safe for concurrent
// use.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDeviceEvent("1d6b:0003", "arrived", eventID, time.Now())
//
// Writes are non-blocking and batched per the configured batch size
// and flush interval; a dropped batch surfaces through the SetOnError
// callback rather than the write call. Connect pings the server, so a
// misconfigured URL or token fails at startup instead of silently
// dropping points.
package influxdb
