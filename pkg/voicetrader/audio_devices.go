package voicetrader

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// AudioDevice describes one host audio device as relevant to voice sessions.
type AudioDevice struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefault         bool
	HostAPI           string
}

func (d AudioDevice) IsInput() bool  { return d.MaxInputChannels > 0 }
func (d AudioDevice) IsOutput() bool { return d.MaxOutputChannels > 0 }

// AudioDeviceManager enumerates host devices. It owns a portaudio
// init/terminate pair, so it must not be used while a voice session is
// active; the CLI devices command is its only caller.
type AudioDeviceManager struct {
	mu      sync.RWMutex
	devices []AudioDevice
	logger  *Logger
}

func NewAudioDeviceManager() *AudioDeviceManager {
	return &AudioDeviceManager{
		logger: GetGlobalLogger().WithComponent("audio-devices"),
	}
}

// Initialize brings up the audio subsystem and snapshots the device list.
func (adm *AudioDeviceManager) Initialize() error {
	adm.mu.Lock()
	defer adm.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return WrapError(err, "audio subsystem unavailable", ErrCodeAudioDevice)
	}
	if err := adm.refreshDevices(); err != nil {
		portaudio.Terminate()
		return WrapError(err, "could not enumerate audio devices", ErrCodeAudioDevice)
	}

	adm.logger.WithField("device_count", len(adm.devices)).Debug("Audio devices enumerated")
	return nil
}

// Cleanup releases the audio subsystem.
func (adm *AudioDeviceManager) Cleanup() {
	adm.mu.Lock()
	defer adm.mu.Unlock()

	if err := portaudio.Terminate(); err != nil {
		adm.logger.WithError(err).Warn("Audio subsystem termination failed")
	}
}

func (adm *AudioDeviceManager) refreshDevices() error {
	adm.devices = adm.devices[:0]

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		adm.logger.WithError(err).Warn("No default input device")
	}
	defaultOutput, err := portaudio.DefaultOutputDevice()
	if err != nil {
		adm.logger.WithError(err).Warn("No default output device")
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}

	for i, dev := range devices {
		hostAPI := "Unknown"
		if dev.HostApi != nil {
			hostAPI = dev.HostApi.Name
		}

		adm.devices = append(adm.devices, AudioDevice{
			ID:                i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefault:         dev == defaultInput || dev == defaultOutput,
			HostAPI:           hostAPI,
		})
	}
	return nil
}

// Devices returns a copy of the enumerated device list.
func (adm *AudioDeviceManager) Devices() []AudioDevice {
	adm.mu.RLock()
	defer adm.mu.RUnlock()
	devices := make([]AudioDevice, len(adm.devices))
	copy(devices, adm.devices)
	return devices
}

// InputDevices returns devices capable of mono capture.
func (adm *AudioDeviceManager) InputDevices() []AudioDevice {
	return adm.filter(AudioDevice.IsInput)
}

// OutputDevices returns devices capable of mono playback.
func (adm *AudioDeviceManager) OutputDevices() []AudioDevice {
	return adm.filter(AudioDevice.IsOutput)
}

func (adm *AudioDeviceManager) filter(keep func(AudioDevice) bool) []AudioDevice {
	adm.mu.RLock()
	defer adm.mu.RUnlock()
	matched := make([]AudioDevice, 0, len(adm.devices))
	for _, device := range adm.devices {
		if keep(device) {
			matched = append(matched, device)
		}
	}
	return matched
}

// DeviceByID looks up one enumerated device.
func (adm *AudioDeviceManager) DeviceByID(id int) (*AudioDevice, error) {
	adm.mu.RLock()
	defer adm.mu.RUnlock()
	for _, device := range adm.devices {
		if device.ID == id {
			return &device, nil
		}
	}
	return nil, NewAudioError(fmt.Sprintf("audio device %d not found", id))
}

// DescribeDevice formats one device for the CLI listing.
func DescribeDevice(device AudioDevice) string {
	marker := " "
	if device.IsDefault {
		marker = "*"
	}
	caps := ""
	if device.IsInput() {
		caps += "in"
	}
	if device.IsOutput() {
		if caps != "" {
			caps += "/"
		}
		caps += "out"
	}
	return fmt.Sprintf("%s [%d] %s (%s, %s, %.0f Hz)",
		marker, device.ID, device.Name, device.HostAPI, caps, device.DefaultSampleRate)
}

// ListAudioDevices enumerates devices in one shot for the CLI.
func ListAudioDevices() ([]AudioDevice, error) {
	manager := NewAudioDeviceManager()
	if err := manager.Initialize(); err != nil {
		return nil, err
	}
	defer manager.Cleanup()
	return manager.Devices(), nil
}
