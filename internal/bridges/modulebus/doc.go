// Package modulebus bridges the device registry and the automation
// registry to hardware modules over MQTT.
//
// Outbound, it is the device.Executor: a command run with execute=true is
// published as a CommandMessage on graylogic/command/{module}/{device}.
//
// Inbound, it handles two topic families:
//
//   - graylogic/state/{module}/{device}: the reported fields are applied to
//     the device without re-executing, which fires matching listeners and
//     therefore device-triggered actions. Momentary events named in the
//     message are fired too.
//   - graylogic/health/{module}: an offline module has its device
//     listeners removed; when it comes back its device triggers are
//     re-registered.
//
// Modules are assumed online until they report otherwise, matching the
// automation registry, which wires every device trigger at load.
package modulebus
