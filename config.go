package niawave

import (
	"fmt"
	"time"

	"github.com/niawave/niawave/nia"
	"github.com/spf13/viper"
)

// DeviceConfig selects the hardware and how to read from it.
type DeviceConfig struct {
	VendorID  uint16
	ProductID uint16
	Endpoint  uint8
	Timeout   time.Duration
}

// Config holds everything read from the configuration file.
type Config struct {
	Device   DeviceConfig
	Tick     time.Duration // 0 runs cycles back to back
	PortBase int
	Verbose  bool
}

// SetConfigDefaults registers the default for every key with viper.
func SetConfigDefaults() {
	viper.SetDefault("verbose", false)
	viper.SetDefault("tick", time.Duration(0))
	viper.SetDefault("ports.base", 5600)
	viper.SetDefault("device.vendorid", nia.DefaultVendorID)
	viper.SetDefault("device.productid", nia.DefaultProductID)
	viper.SetDefault("device.endpoint", nia.DefaultEndpoint)
	viper.SetDefault("device.timeout", nia.DefaultTimeout)
}

// LoadConfig reads the current viper settings into a Config and checks them.
func LoadConfig() (Config, error) {
	var cfg Config
	// Keys are read one at a time: a partial "device" section in the file
	// would otherwise hide the defaults of the keys it omits.
	cfg.Device.VendorID = uint16(viper.GetUint("device.vendorid"))
	cfg.Device.ProductID = uint16(viper.GetUint("device.productid"))
	cfg.Device.Endpoint = uint8(viper.GetUint("device.endpoint"))
	cfg.Device.Timeout = viper.GetDuration("device.timeout")
	cfg.Tick = viper.GetDuration("tick")
	cfg.PortBase = viper.GetInt("ports.base")
	cfg.Verbose = viper.GetBool("verbose")

	if cfg.Device.Timeout <= 0 {
		return cfg, fmt.Errorf("device.timeout=%v, must be positive", cfg.Device.Timeout)
	}
	if cfg.Device.Endpoint&0x80 == 0 {
		return cfg, fmt.Errorf("device.endpoint=0x%02x is not an IN endpoint", cfg.Device.Endpoint)
	}
	if cfg.Tick < 0 {
		return cfg, fmt.Errorf("tick=%v, must not be negative", cfg.Tick)
	}
	if cfg.PortBase <= 0 || cfg.PortBase > 65533 {
		return cfg, fmt.Errorf("ports.base=%d out of range", cfg.PortBase)
	}
	return cfg, nil
}
