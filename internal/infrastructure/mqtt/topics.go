package mqtt

import (
	"fmt"
	"strings"
)

// TopicRoot prefixes every topic the hub uses.
const TopicRoot = "graylogic"

// Topic categories.
const (
	CategoryCommand = "command"
	CategoryState   = "state"
	CategoryHealth  = "health"
)

// Topics builds the hub's topic names.
//
//	graylogic/command/{module}/{device}   hub → module
//	graylogic/state/{module}/{device}     module → hub
//	graylogic/health/{module}             module → hub (retained)
//	graylogic/system/status               hub online/offline (retained, LWT)
type Topics struct{}

// Command returns the topic a module listens on for one device's commands.
func (Topics) Command(moduleID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicRoot, CategoryCommand, moduleID, deviceID)
}

// State returns the topic a module reports one device's state on.
func (Topics) State(moduleID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicRoot, CategoryState, moduleID, deviceID)
}

// Health returns a module's health topic.
func (Topics) Health(moduleID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicRoot, CategoryHealth, moduleID)
}

// AllStates matches the state topic of every device of every module.
func (Topics) AllStates() string {
	return TopicRoot + "/" + CategoryState + "/+/+"
}

// AllHealth matches every module's health topic.
func (Topics) AllHealth() string {
	return TopicRoot + "/" + CategoryHealth + "/+"
}

// SystemStatus is the hub's own retained status topic.
func (Topics) SystemStatus() string {
	return TopicRoot + "/system/status"
}

// ParseDeviceTopic splits graylogic/{category}/{module}/{device}.
func ParseDeviceTopic(topic string) (category, moduleID, deviceID string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicRoot || parts[2] == "" || parts[3] == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	return parts[1], parts[2], parts[3], nil
}

// ParseHealthTopic extracts the module id from graylogic/health/{module}.
func ParseHealthTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicRoot || parts[1] != CategoryHealth || parts[2] == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	return parts[2], nil
}
