// Package config loads the greenhouse controller configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/thermistor"
)

// Config represents the application configuration.
type Config struct {
	Loop        LoopConfig        `yaml:"loop"`
	Heating     HeatingConfig     `yaml:"heating"`
	Ventilation VentilationConfig `yaml:"ventilation"`
	Lighting    LightingConfig    `yaml:"lighting"`
	Watering    WateringConfig    `yaml:"watering"`
	Ambient     AmbientConfig     `yaml:"ambient"`
	Thermistor  ThermistorConfig  `yaml:"thermistor"`
	Hardware    HardwareConfig    `yaml:"hardware"`
	Report      ReportConfig      `yaml:"report"`
}

// LoopConfig contains the supervisory loop timing.
type LoopConfig struct {
	Period          time.Duration `yaml:"period"`
	WatchdogTimeout time.Duration `yaml:"watchdog_timeout"`
}

// HeatingConfig contains the plate thermostat thresholds and PID tuning.
type HeatingConfig struct {
	Setpoint   float64       `yaml:"setpoint"`
	MinSafe    float64       `yaml:"min_safe"`
	MaxSafe    float64       `yaml:"max_safe"`
	BandLow    float64       `yaml:"band_low"`
	BandHigh   float64       `yaml:"band_high"`
	Kp         float64       `yaml:"kp"`
	Ki         float64       `yaml:"ki"`
	Kd         float64       `yaml:"kd"`
	SampleTime time.Duration `yaml:"sample_time"`
}

// VentilationConfig contains the ambient thermostat and vent actuator settings.
type VentilationConfig struct {
	Setpoint         float64       `yaml:"setpoint"`   // ambient target, °C
	Hysteresis       float64       `yaml:"hysteresis"` // °C either side of setpoint
	MotorSpeed       int           `yaml:"motor_speed"`
	Timeout          time.Duration `yaml:"timeout"`
	RetryAfter       time.Duration `yaml:"retry_after"`
	ExtractorVenting int           `yaml:"extractor_venting"` // extractor speed while venting
	ExtractorHeating int           `yaml:"extractor_heating"` // extractor speed while heating
}

// LightingConfig contains the daily light window.
type LightingConfig struct {
	StartHour     int `yaml:"start_hour"`
	DurationHours int `yaml:"duration_hours"` // 0 or > 23 = always on
}

// WateringConfig contains the watering program.
type WateringConfig struct {
	StartHour       int  `yaml:"start_hour"`
	DurationSeconds int  `yaml:"duration_seconds"`
	Periodicity     int  `yaml:"periodicity"` // days between runs, 1-3
	Persist         bool `yaml:"persist"`     // keep the program in clock NVRAM
}

// AmbientConfig contains the ambient sensor fault policy.
type AmbientConfig struct {
	StaleAfter time.Duration `yaml:"stale_after"` // reuse last good reading this long
}

// ThermistorConfig optionally overrides the plate thermistor calibration.
type ThermistorConfig struct {
	Table []thermistor.Entry `yaml:"table"`
}

// HardwareConfig contains the wiring of the controller.
type HardwareConfig struct {
	GPIOChip        string `yaml:"gpio_chip"`
	PinOpenSwitch   int    `yaml:"pin_open_switch"`
	PinClosedSwitch int    `yaml:"pin_closed_switch"`
	PinLight        int    `yaml:"pin_light"`
	PinPump         int    `yaml:"pin_pump"`
	BoardPort       string `yaml:"board_port"`
	BoardBaud       int    `yaml:"board_baud"`
	ThermistorPin   int    `yaml:"thermistor_pin"` // analog channel
	HeaterPin       int    `yaml:"heater_pin"`     // PWM channel
	I2CBus          string `yaml:"i2c_bus"`
	LCDAddress      uint8  `yaml:"lcd_address"`
	RTCAddress      uint8  `yaml:"rtc_address"`
}

// ReportConfig contains the supervision line sink.
type ReportConfig struct {
	Port    string `yaml:"port"` // serial port; empty = stdout
	Baud    int    `yaml:"baud"`
	Backlog int    `yaml:"backlog"` // lines kept while the sink is failing
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Loop: LoopConfig{
			Period:          time.Second,
			WatchdogTimeout: 10 * time.Second,
		},
		Heating: HeatingConfig{
			Setpoint:   60,
			MinSafe:    7,
			MaxSafe:    65,
			BandLow:    58,
			BandHigh:   62,
			Kp:         62.5,
			Ki:         0.2083,
			Kd:         31.25,
			SampleTime: 1500 * time.Millisecond,
		},
		Ventilation: VentilationConfig{
			Setpoint:         20,
			Hysteresis:       1,
			MotorSpeed:       150,
			Timeout:          8 * time.Second,
			RetryAfter:       time.Minute,
			ExtractorVenting: 255,
			ExtractorHeating: 60,
		},
		Lighting: LightingConfig{
			StartHour:     6,
			DurationHours: 14,
		},
		Watering: WateringConfig{
			StartHour:       10,
			DurationSeconds: 15, // roughly 10cl
			Periodicity:     1,
			Persist:         true,
		},
		Ambient: AmbientConfig{
			StaleAfter: 30 * time.Second,
		},
		Hardware: HardwareConfig{
			GPIOChip:        "gpiochip0",
			PinOpenSwitch:   17,
			PinClosedSwitch: 27,
			PinLight:        22,
			PinPump:         23,
			BoardPort:       "/dev/ttyACM0",
			BoardBaud:       115200,
			ThermistorPin:   13,
			HeaterPin:       8,
			I2CBus:          "/dev/i2c-1",
			LCDAddress:      0x27,
			RTCAddress:      0x68,
		},
		Report: ReportConfig{
			Port:    "",
			Baud:    9600,
			Backlog: 256,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that cannot be safely defaulted.
func (c *Config) Validate() error {
	h := c.Heating
	if !(h.MinSafe < h.BandLow && h.BandLow <= h.Setpoint && h.Setpoint <= h.BandHigh && h.BandHigh < h.MaxSafe) {
		return fmt.Errorf("heating: need min_safe < band_low <= setpoint <= band_high < max_safe")
	}
	if c.Loop.WatchdogTimeout <= c.Loop.Period {
		return fmt.Errorf("loop: watchdog_timeout (%v) must exceed period (%v)", c.Loop.WatchdogTimeout, c.Loop.Period)
	}
	if c.Ventilation.MotorSpeed < 0 || c.Ventilation.MotorSpeed > 255 {
		return fmt.Errorf("ventilation: motor_speed %d outside 0-255", c.Ventilation.MotorSpeed)
	}
	if len(c.Thermistor.Table) > 0 {
		if _, err := thermistor.NewTable(c.Thermistor.Table); err != nil {
			return fmt.Errorf("thermistor: %w", err)
		}
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Loop.Period == 0 {
		c.Loop.Period = def.Loop.Period
	}
	if c.Loop.WatchdogTimeout == 0 {
		c.Loop.WatchdogTimeout = def.Loop.WatchdogTimeout
	}

	if c.Heating.SampleTime == 0 {
		c.Heating.SampleTime = def.Heating.SampleTime
	}

	if c.Ventilation.Timeout == 0 {
		c.Ventilation.Timeout = def.Ventilation.Timeout
	}
	if c.Ventilation.MotorSpeed == 0 {
		c.Ventilation.MotorSpeed = def.Ventilation.MotorSpeed
	}

	if c.Ambient.StaleAfter == 0 {
		c.Ambient.StaleAfter = def.Ambient.StaleAfter
	}

	if c.Hardware.GPIOChip == "" {
		c.Hardware.GPIOChip = def.Hardware.GPIOChip
	}
	if c.Hardware.BoardBaud == 0 {
		c.Hardware.BoardBaud = def.Hardware.BoardBaud
	}
	if c.Hardware.I2CBus == "" {
		c.Hardware.I2CBus = def.Hardware.I2CBus
	}
	if c.Hardware.LCDAddress == 0 {
		c.Hardware.LCDAddress = def.Hardware.LCDAddress
	}
	if c.Hardware.RTCAddress == 0 {
		c.Hardware.RTCAddress = def.Hardware.RTCAddress
	}

	if c.Report.Baud == 0 {
		c.Report.Baud = def.Report.Baud
	}
	if c.Report.Backlog == 0 {
		c.Report.Backlog = def.Report.Backlog
	}
}

// HeatingLogic converts the heating section for the regulator.
func (c *Config) HeatingLogic() logic.HeatingConfig {
	h := c.Heating
	return logic.HeatingConfig{
		Setpoint:   h.Setpoint,
		MinSafe:    h.MinSafe,
		MaxSafe:    h.MaxSafe,
		BandLow:    h.BandLow,
		BandHigh:   h.BandHigh,
		Kp:         h.Kp,
		Ki:         h.Ki,
		Kd:         h.Kd,
		SampleTime: h.SampleTime.Seconds(),
	}
}

// VentLogic converts the ventilation section for the vent actuator.
func (c *Config) VentLogic() logic.VentConfig {
	return logic.VentConfig{
		Speed:      c.Ventilation.MotorSpeed,
		Timeout:    c.Ventilation.Timeout,
		RetryAfter: c.Ventilation.RetryAfter,
	}
}

// WateringSchedule converts the watering section.
func (c *Config) WateringSchedule() logic.WateringSchedule {
	return logic.WateringSchedule{
		StartHour:       c.Watering.StartHour,
		DurationSeconds: c.Watering.DurationSeconds,
		Periodicity:     c.Watering.Periodicity,
	}
}

// LightingSchedule converts the lighting section.
func (c *Config) LightingSchedule() logic.LightingSchedule {
	return logic.LightingSchedule{
		StartHour:     c.Lighting.StartHour,
		DurationHours: c.Lighting.DurationHours,
	}
}

// ThermistorTable returns the configured calibration table, or the stock
// 100k table when none is configured.
func (c *Config) ThermistorTable() (*thermistor.Table, error) {
	if len(c.Thermistor.Table) == 0 {
		return thermistor.Default100K, nil
	}
	return thermistor.NewTable(c.Thermistor.Table)
}
