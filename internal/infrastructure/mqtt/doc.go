// Package mqtt connects the daemon to its broker and shapes the
// topic namespace it publishes under.
//
// The daemon announces hot-plug activity over MQTT so other services
// can react to devices coming and going without polling the HTTP API.
// Per-device events, a firehose of all events, and retained per-device
// presence markers each have their own topic, built by the Topics
// helper. The only inbound topic is the remote shutdown command.
//
// The client wraps eclipse/paho with auto-reconnect, resubscription
// after a broker bounce, and a retained Last Will so consumers see
// an offline status even when the daemon dies without cleanup:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	var topics mqtt.Topics
//	err = client.Subscribe(topics.SystemShutdown(), 1,
//	    func(topic string, payload []byte) error {
//	        shutdown()
//	        return nil
//	    })
//
//	client.Publish(topics.DeviceEvent("1d6b:0003"), payload, 1, false)
//
// Enable TLS on any deployment that leaves localhost. Payloads are
// plaintext JSON under the transport.
package mqtt
