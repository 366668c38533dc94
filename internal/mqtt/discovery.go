package mqtt

import "encoding/json"

const manufacturer = "boiler-vision"

// Device groups entities in Home Assistant.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// EntityConfig is a Home Assistant MQTT discovery config.
type EntityConfig struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	StateTopic          string `json:"state_topic,omitempty"`
	CommandTopic        string `json:"command_topic,omitempty"`
	PayloadOn           string `json:"payload_on,omitempty"`
	PayloadOff          string `json:"payload_off,omitempty"`
	DeviceClass         string `json:"device_class,omitempty"`
	StateClass          string `json:"state_class,omitempty"`
	UnitOfMeasurement   string `json:"unit_of_measurement,omitempty"`
	AvailabilityTopic   string `json:"availability_topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
	Device              Device `json:"device"`
}

var (
	boilerDevice = Device{
		Identifiers:  []string{"boiler_mqtt"},
		Name:         "Boiler",
		Manufacturer: manufacturer,
		Model:        "Boiler v1",
	}
	lightDevice = Device{
		Identifiers:  []string{"storage_room_light_mqtt_01"},
		Name:         "Storage Room Light",
		Manufacturer: manufacturer,
		Model:        "Basic Light v1",
	}
)

type discoveryEntity struct {
	component string
	node      string
	objectID  string
	config    EntityConfig
}

func discoveryEntities() []discoveryEntity {
	boiler := func(c EntityConfig) EntityConfig {
		c.AvailabilityTopic = TopicBoilerAvailability
		c.PayloadAvailable = PayloadOnline
		c.PayloadNotAvailable = PayloadOffline
		c.Device = boilerDevice
		return c
	}
	return []discoveryEntity{
		{"binary_sensor", "boiler", "boiler_heating", boiler(EntityConfig{
			Name:        "Boiler Heating",
			UniqueID:    "boiler_heating_mqtt_auto_01",
			StateTopic:  TopicHeating,
			PayloadOn:   PayloadOn,
			PayloadOff:  PayloadOff,
			DeviceClass: "heat",
		})},
		{"sensor", "boiler", "boiler_percentage", boiler(EntityConfig{
			Name:              "Boiler Percentage",
			UniqueID:          "boiler_percentage_mqtt_auto_01",
			StateTopic:        TopicPercentage,
			UnitOfMeasurement: "%",
			DeviceClass:       "battery",
			StateClass:        "measurement",
		})},
		{"binary_sensor", "boiler", "boiler_error", boiler(EntityConfig{
			Name:        "Boiler Error",
			UniqueID:    "boiler_error_mqtt_auto_01",
			StateTopic:  TopicError,
			PayloadOn:   PayloadOn,
			PayloadOff:  PayloadOff,
			DeviceClass: "problem",
		})},
		{"sensor", "boiler", "boiler_last_force_check", boiler(EntityConfig{
			Name:        "Boiler Last Force Check",
			UniqueID:    "boiler_last_force_check_mqtt_auto_01",
			StateTopic:  TopicLastForceCheck,
			DeviceClass: "timestamp",
		})},
		{"button", "boiler", "boiler_force_check", boiler(EntityConfig{
			Name:         "Boiler Force Check",
			UniqueID:     "boiler_force_check_mqtt_auto_01",
			CommandTopic: TopicForceCheck,
		})},
		{"binary_sensor", "storage_room", "storage_room_light", EntityConfig{
			Name:                "Storage Room Light",
			UniqueID:            "storage_room_light_mqtt_auto_01",
			StateTopic:          TopicRoomLight,
			PayloadOn:           PayloadOn,
			PayloadOff:          PayloadOff,
			DeviceClass:         "light",
			AvailabilityTopic:   TopicLightAvailability,
			PayloadAvailable:    PayloadOnline,
			PayloadNotAvailable: PayloadOffline,
			Device:              lightDevice,
		}},
	}
}

// DiscoveryTopic returns the config topic for an entity.
func DiscoveryTopic(component, node, objectID string) string {
	return DiscoveryPrefix + "/" + component + "/" + node + "/" + objectID + "/config"
}

// DiscoveryMessages returns the retained discovery configs for every entity.
func DiscoveryMessages() ([]Message, error) {
	entities := discoveryEntities()
	msgs := make([]Message, 0, len(entities))
	for _, e := range entities {
		payload, err := json.Marshal(e.config)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{
			Topic:    DiscoveryTopic(e.component, e.node, e.objectID),
			Payload:  payload,
			QoS:      1,
			Retained: true,
		})
	}
	return msgs, nil
}

// AvailabilityMessages returns retained availability updates for both
// devices. payload is PayloadOnline or PayloadOffline.
func AvailabilityMessages(payload string) []Message {
	return []Message{
		{Topic: TopicBoilerAvailability, Payload: []byte(payload), QoS: 1, Retained: true},
		{Topic: TopicLightAvailability, Payload: []byte(payload), QoS: 1, Retained: true},
	}
}
