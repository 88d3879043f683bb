// Package mqtt connects the automation hub to the module bus.
//
// Hardware modules (relay boards, sensor nodes, protocol gateways) sit on
// the far side of a Mosquitto broker. The hub publishes device commands to
// them and receives state reports and module health back:
//
//	automation hub ↔ MQTT broker ↔ modules
//
// The client restores subscriptions after reconnects, recovers panics in
// handlers, and maintains a retained online/offline status with a last
// will so modules can tell when the hub has gone away.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllStates(), 1,
//	    func(topic string, payload []byte) error {
//	        _, module, device, err := mqtt.ParseDeviceTopic(topic)
//	        ...
//	    })
//
// TLS should be enabled outside a development network; payloads are not
// encrypted beyond the transport.
package mqtt
