package scene

// DeviceType is a render compute backend.
type DeviceType string

const (
	DeviceCPU    DeviceType = "CPU"
	DeviceCUDA   DeviceType = "CUDA"
	DeviceOptiX  DeviceType = "OPTIX"
	DeviceHIP    DeviceType = "HIP"
	DeviceMetal  DeviceType = "METAL"
	DeviceOneAPI DeviceType = "ONEAPI"
)

// Device is one render device and whether it takes part in rendering.
type Device struct {
	Name  string     `yaml:"name"`
	Type  DeviceType `yaml:"type"`
	Cores int        `yaml:"cores,omitempty"`
	Use   bool       `yaml:"use"`
}

// DeviceConfig is the explicit set of devices a scene renders with.
type DeviceConfig struct {
	Compute DeviceType `yaml:"compute"`
	Devices []Device   `yaml:"devices"`
}

// EnableAll returns a copy with every device switched on.
func (c DeviceConfig) EnableAll() DeviceConfig {
	out := DeviceConfig{Compute: c.Compute, Devices: make([]Device, len(c.Devices))}
	for i, d := range c.Devices {
		d.Use = true
		out.Devices[i] = d
	}
	return out
}

// Active returns the devices in use.
func (c DeviceConfig) Active() []Device {
	var active []Device
	for _, d := range c.Devices {
		if d.Use {
			active = append(active, d)
		}
	}
	return active
}

// GPU reports whether a non-CPU device is active.
func (c DeviceConfig) GPU() bool {
	for _, d := range c.Active() {
		if d.Type != DeviceCPU {
			return true
		}
	}
	return false
}
