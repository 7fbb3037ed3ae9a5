// still-recorder - capture bursts of still images and store them as image stacks
//  Copyright (C) 2018, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/still-recorder/camera"
	"github.com/TheCacophonyProject/still-recorder/capture"
	"github.com/TheCacophonyProject/still-recorder/fakecamera"
	"github.com/TheCacophonyProject/still-recorder/imagewriter"
	"github.com/TheCacophonyProject/still-recorder/throttle"
)

type Config struct {
	DeviceID     int                        `yaml:"-"`
	DeviceName   string                     `yaml:"-"`
	OutputDir    string                     `yaml:"output-dir"`
	NextFileID   int                        `yaml:"next-file-id"`
	Camera       string                     `yaml:"camera"`
	OutputFormat string                     `yaml:"output-format"`
	ViewerActive bool                       `yaml:"viewer-active"`
	Burst        []capture.ShotParams       `yaml:"burst"`
	Preview      map[string]fakecamera.Size `yaml:"preview"`
	HTTPAddress  string                     `yaml:"http-address"`
	RenderFPS    int                        `yaml:"render-fps"`
	LogInterval  time.Duration              `yaml:"log-interval"`
	Flash        FlashConfig                `yaml:"flash"`
	Throttler    throttle.ThrottlerConfig   `yaml:"throttler"`
}

type FlashConfig struct {
	Pin      string        `yaml:"pin"`
	Duration time.Duration `yaml:"duration"`
}

// Touch white balance samples a patch of the preview.
const minPreviewSize = camera.TouchPatchSize + 1

func (conf *Config) Validate() error {
	if conf.OutputDir == "" {
		return errors.New("output-dir must be set")
	}
	if conf.NextFileID < 0 {
		return errors.New("next-file-id can't be negative")
	}
	if _, err := camera.ParseMode(conf.Camera); err != nil {
		return err
	}
	format, err := imagewriter.ParseFormat(conf.OutputFormat)
	if err != nil {
		return err
	}
	if format == imagewriter.DNG {
		return errors.New("dng output is not supported")
	}
	if len(conf.Burst) > capture.MaxBurst {
		return fmt.Errorf("burst can't have more than %d shots", capture.MaxBurst)
	}
	for name, size := range conf.Preview {
		if _, err := camera.ParseMode(name); err != nil {
			return fmt.Errorf("preview: %v", err)
		}
		if size.Width < minPreviewSize || size.Height < minPreviewSize {
			return fmt.Errorf("preview size for %s must be at least %dx%d", name, minPreviewSize, minPreviewSize)
		}
	}
	if conf.RenderFPS <= 0 {
		return errors.New("render-fps must be positive")
	}
	if conf.Flash.Pin != "" && conf.Flash.Duration <= 0 {
		return errors.New("flash duration must be positive")
	}
	return conf.Throttler.Validate()
}

var defaultConfig = Config{
	OutputDir:    "/var/spool/stills",
	Camera:       "back",
	OutputFormat: "jpeg",
	Burst:        []capture.ShotParams{capture.DefaultShotParams()},
	HTTPAddress:  ":8090",
	RenderFPS:    10,
	LogInterval:  time.Minute,
	Flash: FlashConfig{
		Duration: 20 * time.Millisecond,
	},
	Throttler: throttle.DefaultThrottlerConfig(),
}

// ParseConfigFiles reads the settings file, which may be missing, and
// the device identity from the device configuration directory.
func ParseConfigFiles(filename, configDir string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	conf, err := ParseConfig(buf)
	if err != nil {
		return nil, err
	}

	device, err := readDevice(configDir)
	if err != nil {
		return nil, err
	}
	conf.DeviceID = device.ID
	conf.DeviceName = device.Name
	return conf, nil
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig
	conf.Burst = append([]capture.ShotParams(nil), defaultConfig.Burst...)
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func readDevice(configDir string) (goconfig.Device, error) {
	var device goconfig.Device
	configRW, err := goconfig.New(configDir)
	if err != nil {
		return device, err
	}
	if err := configRW.Unmarshal(goconfig.DeviceKey, &device); err != nil {
		return device, err
	}
	return device, nil
}

// cameraConfig returns the software camera settings with the preview
// sizes overridden by the settings file.
func (conf *Config) cameraConfig(flash camera.Flash) fakecamera.Config {
	cams := fakecamera.DefaultConfig()
	cams.Flash = flash
	for name, size := range conf.Preview {
		mode, _ := camera.ParseMode(name)
		cams.Preview[mode] = size
	}
	return cams
}

func (conf *Config) cameraMode() camera.Mode {
	mode, _ := camera.ParseMode(conf.Camera)
	return mode
}

// initialCommands brings a new capture loop to the configured state.
func (conf *Config) initialCommands() []capture.Command {
	format, _ := imagewriter.ParseFormat(conf.OutputFormat)

	cmds := []capture.Command{
		capture.IntCommand(capture.ParamOutputFileID, conf.NextFileID),
		capture.StringCommand(capture.ParamOutputDirectory, conf.OutputDir),
		capture.IntCommand(capture.ParamOutputFormat, int(format)),
	}
	for i, shot := range conf.Burst {
		cmds = append(cmds, capture.ShotCommand(i, shot))
	}
	cmds = append(cmds,
		capture.IntCommand(capture.ParamBurstSize, len(conf.Burst)),
		capture.BoolCommand(capture.ParamViewerActive, conf.ViewerActive),
	)
	return cmds
}
