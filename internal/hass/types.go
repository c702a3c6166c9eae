package hass

// State is one entry of the full state listing (GET /api/states).
type State struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// serviceDomain is one entry of GET /api/services.
type serviceDomain struct {
	Domain   string         `json:"domain"`
	Services map[string]any `json:"services"`
}

// wsRequest is a command frame on the WebSocket API.
type wsRequest struct {
	ID          int    `json:"id,omitempty"`
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}

// wsResponse is a result frame on the WebSocket API.
type wsResponse struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Result  []struct {
		ID string `json:"id"`
	} `json:"result"`
}

// Attribute keys the engine reads from entity state attributes.
const (
	AttrFriendlyName       = "friendly_name"
	AttrDeviceClass        = "device_class"
	AttrSupportedFeatures  = "supported_features"
	AttrUnitOfMeasurement  = "unit_of_measurement"
	AttrCurrentTemperature = "current_temperature"
	AttrCurrentHumidity    = "current_humidity"
)

// Device registry attribute keys used with DeviceAttr.
const (
	DeviceAttrManufacturer = "manufacturer"
	DeviceAttrModel        = "model"
	DeviceAttrName         = "name"
	DeviceAttrNameByUser   = "name_by_user"
	DeviceAttrEntryType    = "entry_type"
	DeviceAttrViaDevice    = "via_device_id"
)

// Feature bits, from Home Assistant's entity feature enums.
const (
	ClimateFeatureTargetHumidity = 4
	ClimateFeatureFanMode        = 8
	ClimateFeaturePresetMode     = 16
	ClimateFeatureSwingMode      = 32

	RemoteFeatureLearnCommand  = 1
	RemoteFeatureDeleteCommand = 2
)

// Service names with dedicated handling.
const (
	ServiceTurnOn        = "turn_on"
	ServiceSetFanMode    = "set_fan_mode"
	ServiceSetHumidity   = "set_humidity"
	ServiceSetPresetMode = "set_preset_mode"
	ServiceSetSwingMode  = "set_swing_mode"
	ServiceLearnCommand  = "learn_command"
	ServiceDeleteCommand = "delete_command"
)

// Platforms (entity domains) shipped with Home Assistant core. The
// metamodel declares one Platform subclass per entry, and the default
// privacy allow-set starts from this list.
func Platforms() []string {
	return []string{
		"air_quality",
		"alarm_control_panel",
		"binary_sensor",
		"button",
		"calendar",
		"camera",
		"climate",
		"conversation",
		"cover",
		"date",
		"datetime",
		"device_tracker",
		"event",
		"fan",
		"geo_location",
		"humidifier",
		"image",
		"image_processing",
		"lawn_mower",
		"light",
		"lock",
		"media_player",
		"notify",
		"number",
		"remote",
		"scene",
		"select",
		"sensor",
		"siren",
		"stt",
		"switch",
		"text",
		"time",
		"todo",
		"tts",
		"update",
		"vacuum",
		"valve",
		"wake_word",
		"water_heater",
		"weather",
	}
}

// SensorDeviceClasses mirrors Home Assistant's SensorDeviceClass enum.
// Versioned configuration: extend when tracking a newer core release.
func SensorDeviceClasses() []string {
	return []string{
		"apparent_power", "aqi", "atmospheric_pressure", "battery",
		"carbon_dioxide", "carbon_monoxide", "current", "data_rate",
		"data_size", "date", "distance", "duration", "energy",
		"energy_storage", "enum", "frequency", "gas", "humidity",
		"illuminance", "irradiance", "moisture", "monetary",
		"nitrogen_dioxide", "nitrogen_monoxide", "nitrous_oxide", "ozone",
		"ph", "pm1", "pm10", "pm25", "power", "power_factor",
		"precipitation", "precipitation_intensity", "pressure",
		"reactive_power", "signal_strength", "sound_pressure", "speed",
		"sulphur_dioxide", "temperature", "timestamp",
		"volatile_organic_compounds", "voltage", "volume",
		"volume_storage", "water", "weight", "wind_speed",
	}
}

// BinarySensorDeviceClasses mirrors the BinarySensorDeviceClass enum.
func BinarySensorDeviceClasses() []string {
	return []string{
		"battery", "battery_charging", "carbon_monoxide", "cold",
		"connectivity", "door", "garage_door", "gas", "heat", "light",
		"lock", "moisture", "motion", "moving", "occupancy", "opening",
		"plug", "power", "presence", "problem", "running", "safety",
		"smoke", "sound", "tamper", "update", "vibration", "window",
	}
}

// BlueprintSelectors mirrors the selector kinds blueprints may declare.
func BlueprintSelectors() []string {
	return []string{
		"action", "area", "boolean", "device", "duration", "entity",
		"number", "object", "select", "target", "text", "time",
	}
}
