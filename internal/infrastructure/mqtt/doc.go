// Package mqtt provides MQTT client connectivity for HOWL.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// HOWL uses MQTT for two things: announcing completed export runs to
// downstream consumers (reasoners, graph stores, dashboards), and
// accepting export commands from other systems on the home network.
//
//	HOWL exporter ↔ MQTT Broker ↔ Graph consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to export commands
//	err = client.Subscribe(mqtt.Topics{}.ExportCommand(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Announce a completed run
//	client.Publish(mqtt.Topics{}.Exports(), payload, 1, false)
package mqtt
