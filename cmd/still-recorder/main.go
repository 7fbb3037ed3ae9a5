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
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
	"periph.io/x/periph/host"

	"github.com/TheCacophonyProject/still-recorder/camera"
	"github.com/TheCacophonyProject/still-recorder/capture"
	"github.com/TheCacophonyProject/still-recorder/fakecamera"
	"github.com/TheCacophonyProject/still-recorder/flash"
	"github.com/TheCacophonyProject/still-recorder/gallery"
	"github.com/TheCacophonyProject/still-recorder/throttle"
)

const watchdogInterval = 5 * time.Second

var version = "<not set>"

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"path to configuration file"`
	ConfigDir  string `arg:"--config-dir" help:"path to device configuration directory"`
	Timestamps bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
	Verbose    bool   `arg:"-v,--verbose" help:"Make logging more verbose"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/still-recorder.yaml"
	args.ConfigDir = goconfig.DefaultConfigDir
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := ParseConfigFiles(args.ConfigFile, args.ConfigDir)
	if err != nil {
		return err
	}
	logConfig(conf)

	log.Println("host initialisation")
	if _, err := host.Init(); err != nil {
		return err
	}

	var flashDevice camera.Flash
	if conf.Flash.Pin != "" {
		f, err := flash.New(conf.Flash.Pin, conf.Flash.Duration)
		if err != nil {
			return err
		}
		flashDevice = f
	}

	events := throttle.NewEventRecorder()
	notifier := newNotifier(events)
	loop, err := capture.New(capture.Config{
		Opener:        fakecamera.Opener(conf.cameraConfig(flashDevice)),
		Camera:        conf.cameraMode(),
		Exposer:       fakecamera.Exposer{},
		WhiteBalancer: fakecamera.GreyWorld{},
		Listener:      notifier,
		Throttler:     throttle.NewCaptureThrottler(conf.Throttler, events),
		DeviceName:    conf.DeviceName,
		LogInterval:   conf.LogInterval,
		Verbose:       args.Verbose,
	})
	if err != nil {
		return err
	}
	for _, cmd := range conf.initialCommands() {
		loop.Submit(cmd)
	}

	log.Println("starting d-bus service")
	conn, err := startService(loop)
	if err != nil {
		return err
	}
	notifier.setConn(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	previews := newPreviewEncoder(loop.Preview(), conf.RenderFPS)
	go previews.run(ctx)

	go gallery.Watch(ctx, conf.OutputDir, notifier.GalleryChanged)

	server := &http.Server{
		Addr:    conf.HTTPAddress,
		Handler: newRouter(loop, previews, conf.OutputDir),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server failed: %v", err)
		}
	}()
	defer server.Close()

	go stopOnSignal(loop)

	daemon.SdNotify(false, daemon.SdNotifyReady)
	go heartbeat(ctx, loop, watchdogInterval)

	log.Println("capturing")
	return loop.Run()
}

func stopOnSignal(loop *capture.Loop) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Printf("received %v, stopping", sig)
	loop.Stop()
}

// heartbeat pets the systemd watchdog while the capture loop makes
// progress. A loop waiting for commands with the viewer off is idle, not
// stuck.
func heartbeat(ctx context.Context, loop *capture.Loop, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := loop.Status()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := loop.Status()
			if alive(last, st) {
				daemon.SdNotify(false, "WATCHDOG=1")
			} else {
				log.Printf("capture loop has not cycled for %v", interval)
			}
			last = st
		}
	}
}

func alive(last, now capture.Status) bool {
	if now.Cycles != last.Cycles {
		return true
	}
	return !now.ViewerActive && !now.Capturing
}

func logConfig(conf *Config) {
	log.Printf("device name: %s", conf.DeviceName)
	log.Printf("output dir: %s", conf.OutputDir)
	log.Printf("next file id: %d", conf.NextFileID)
	log.Printf("camera: %s", conf.Camera)
	log.Printf("output format: %s", conf.OutputFormat)
	log.Printf("burst: %+v", conf.Burst)
	log.Printf("http address: %s", conf.HTTPAddress)
	log.Printf("render fps: %d", conf.RenderFPS)
	if conf.Flash.Pin != "" {
		log.Printf("flash: pin %s for %v", conf.Flash.Pin, conf.Flash.Duration)
	}
	log.Printf("throttler: %+v", conf.Throttler)
}
