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

// Package capture runs the camera: it applies parameter commands, takes
// bursts of pictures, streams the preview and keeps a snapshot of its
// state for other goroutines to read.
package capture

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/still-recorder/camera"
	"github.com/TheCacophonyProject/still-recorder/imagewriter"
	"github.com/TheCacophonyProject/still-recorder/loglimiter"
	"github.com/TheCacophonyProject/still-recorder/workqueue"
)

const (
	exposureTarget     = 0.3
	defaultLogInterval = time.Minute
	// The lens position is unknown after opening a camera or taking
	// pictures.
	unknownFocus = -1
)

type Config struct {
	Opener camera.Opener
	Camera camera.Mode

	Exposer       camera.AutoExposer
	WhiteBalancer camera.AutoWhiteBalancer
	// ColourTemperature estimates the colour temperature around a point
	// of a preview frame. Defaults to camera.LocalColourTemperature.
	ColourTemperature func(current int, img *camera.Image, x, y int) int

	Listener   Listener
	Throttler  Throttler
	Preview    *PreviewProvider
	DeviceName string

	LogInterval time.Duration
	Verbose     bool
}

// Status describes the loop itself rather than the capture settings.
type Status struct {
	FPS          float32
	Capturing    bool
	ViewerActive bool
	Camera       camera.Mode
	OutputFormat imagewriter.Format
	OutputDir    string
	Cycles       uint64
}

type touchAction int

const (
	touchNone touchAction = iota
	touchFocus
	touchWhiteBalance
)

// Loop owns the camera. Run must be called from exactly one goroutine.
// Everything else is safe to call from any goroutine.
type Loop struct {
	conf     Config
	listener Listener
	preview  *PreviewProvider
	logs     *loglimiter.LogLimiter
	now      func() time.Time

	queue *workqueue.Queue[Command]
	batch []Command

	// Owned by the Run goroutine.
	device       *camera.Device
	writer       *imagewriter.Writer
	nextFileID   int
	live         CaptureState
	viewerActive bool
	outputFormat imagewriter.Format
	shot         camera.Shot
	lensFocus    float32
	touch        touchAction
	touchX       int
	touchY       int
	fps          fpsCounter
	jitter       jitter

	// Guards prev and status.
	mu     sync.Mutex
	prev   CaptureState
	status Status
}

// New opens the configured camera. The loop starts with the viewer
// inactive and no output directory.
func New(conf Config) (*Loop, error) {
	if conf.Opener == nil {
		return nil, fmt.Errorf("no camera opener")
	}
	if conf.ColourTemperature == nil {
		conf.ColourTemperature = camera.LocalColourTemperature
	}
	if conf.LogInterval <= 0 {
		conf.LogInterval = defaultLogInterval
	}
	l := &Loop{
		conf:      conf,
		listener:  conf.Listener,
		preview:   conf.Preview,
		logs:      loglimiter.New(conf.LogInterval),
		now:       time.Now,
		queue:     workqueue.New[Command](),
		live:      DefaultCaptureState(),
		lensFocus: unknownFocus,
	}
	if l.listener == nil {
		l.listener = nullListener{}
	}
	if l.preview == nil {
		l.preview = NewPreviewProvider()
	}

	device, err := conf.Opener(conf.Camera)
	if err != nil {
		return nil, fmt.Errorf("could not open %v camera: %v", conf.Camera, err)
	}
	l.preview.mu.Lock()
	l.device = device
	l.preview.resize(device.PreviewWidth, device.PreviewHeight)
	l.preview.mu.Unlock()

	l.fps = newFPSCounter(l.now())
	l.prev = l.live
	l.status = Status{
		FPS:          initialFPS,
		Camera:       device.Mode,
		OutputFormat: imagewriter.JPEG,
	}
	return l, nil
}

// Preview returns the provider the loop publishes preview frames to.
func (l *Loop) Preview() *PreviewProvider {
	return l.preview
}

// Submit queues a command. Commands are applied in submission order at
// the start of the next cycle.
func (l *Loop) Submit(cmd Command) {
	cmd.Payload = append([]byte(nil), cmd.Payload...)
	l.queue.Produce(cmd)
}

// Stop asks Run to return once the commands submitted before it are
// applied.
func (l *Loop) Stop() {
	l.queue.Produce(Command{ID: uint32(paramStop)})
}

// Run cycles until stopped. On return pending image sets have been
// written and the camera is closed.
func (l *Loop) Run() error {
	defer l.shutdown()
	for {
		if !l.cycle() {
			return nil
		}
	}
}

func (l *Loop) shutdown() {
	if l.writer != nil {
		l.writer.Close()
	}
	l.device.Sensor.StopStreaming()
	if err := l.device.Sensor.Close(); err != nil {
		log.Printf("closing camera: %v", err)
	}
}

// cycle applies queued commands then, if the viewer is active, captures
// and publishes one preview frame. It returns false when asked to stop.
func (l *Loop) cycle() bool {
	l.batch = l.batch[:0]
	if !l.viewerActive {
		// Nothing to stream so wait for a command rather than spin.
		cmd, _ := l.queue.Consume(true)
		l.batch = append(l.batch, cmd)
	}
	l.batch = l.queue.ConsumeAll(l.batch)

	l.touch = touchNone
	for _, cmd := range l.batch {
		if cmd.Param() == paramStop {
			l.updateSnapshot()
			return false
		}
		l.dispatch(cmd)
	}

	if !l.viewerActive {
		l.updateSnapshot()
		return true
	}
	l.previewCycle()
	return true
}

func (l *Loop) dispatch(cmd Command) {
	if err := l.apply(cmd); err != nil {
		l.logs.Printf("dropped %v command: %v", cmd.Param(), err)
	}
}

func (l *Loop) apply(cmd Command) error {
	pv := &l.live.Preview

	switch cmd.Param() {
	case ParamShot:
		vs, err := cmd.Floats(ShotValues)
		if err != nil {
			return err
		}
		slot := cmd.Slot()
		if slot >= MaxBurst {
			return fmt.Errorf("burst slot %d out of range: %w", slot, ErrMalformedPayload)
		}
		l.live.Pending[slot] = ShotParams{
			Exposure: vs[ShotExposure],
			Focus:    vs[ShotFocus],
			Gain:     vs[ShotGain],
			WB:       vs[ShotWB],
			Flash:    vs[ShotFlash] > 0,
		}

	case ParamPreviewExposure:
		return setFloat(cmd, &pv.User.Exposure)
	case ParamPreviewFocus:
		return setFloat(cmd, &pv.User.Focus)
	case ParamPreviewGain:
		return setFloat(cmd, &pv.User.Gain)
	case ParamPreviewWB:
		return setFloat(cmd, &pv.User.WB)

	case ParamAutoExposureOn:
		return setAuto(cmd, &pv.AutoExposure, &pv.Evaluated.Exposure, &pv.User.Exposure)
	case ParamAutoFocusOn:
		return setAuto(cmd, &pv.AutoFocus, &pv.Evaluated.Focus, &pv.User.Focus)
	case ParamAutoGainOn:
		return setAuto(cmd, &pv.AutoGain, &pv.Evaluated.Gain, &pv.User.Gain)
	case ParamAutoWBOn:
		return setAuto(cmd, &pv.AutoWB, &pv.Evaluated.WB, &pv.User.WB)

	case ParamResolution:
		// Pictures are always taken at the sensor's full size.

	case ParamBurstSize:
		n, err := cmd.Int()
		if err != nil {
			return err
		}
		if n < 0 || n > MaxBurst {
			return fmt.Errorf("burst size %d out of range: %w", n, ErrMalformedPayload)
		}
		l.live.PendingCount = n

	case ParamOutputFormat:
		n, err := cmd.Int()
		if err != nil {
			return err
		}
		format := imagewriter.Format(n)
		if format < imagewriter.JPEG || format > imagewriter.RAW {
			return fmt.Errorf("unknown output format %d: %w", n, ErrMalformedPayload)
		}
		l.outputFormat = format

	case ParamViewerActive:
		on, err := cmd.Bool()
		if err != nil {
			return err
		}
		l.viewerActive = on
		if !on {
			l.device.Sensor.StopStreaming()
		}

	case ParamOutputDirectory:
		if l.writer != nil {
			log.Printf("output directory already set to %s", l.writer.Dir())
			return nil
		}
		w, err := imagewriter.New(imagewriter.Options{
			Dir:        cmd.Text(),
			NextID:     l.nextFileID,
			DeviceName: l.conf.DeviceName,
			OnChange:   l.fileSystemChanged,
			OnResult:   l.imageSetWritten,
		})
		if err != nil {
			return err
		}
		l.writer = w

	case ParamOutputFileID:
		id, err := cmd.Int()
		if err != nil {
			return err
		}
		l.nextFileID = id
		if l.writer != nil {
			l.writer.SetNextID(id)
		}

	case ParamTakePicture:
		take, err := cmd.Bool()
		if err != nil {
			return err
		}
		if l.writer == nil {
			return fmt.Errorf("no output directory")
		}
		if take {
			l.takePicture()
		}

	case paramFileSystemChanged:
		l.listener.FileSystemChanged()

	case paramWriteResult:
		var report WriteReport
		if err := yaml.Unmarshal(cmd.Payload, &report); err != nil {
			return err
		}
		l.listener.ImageSetWritten(report)

	case ParamSelectCamera:
		n, err := cmd.Int()
		if err != nil {
			return err
		}
		mode := camera.Mode(n)
		if mode < camera.Front || mode > camera.Stereo {
			return fmt.Errorf("unknown camera %d: %w", n, ErrMalformedPayload)
		}
		return l.selectCamera(mode)

	case ParamFocusOnTouch, ParamWBOnTouch:
		vs, err := cmd.Floats(2)
		if err != nil {
			return err
		}
		l.touchX = int(vs[0] * float32(l.device.PreviewWidth))
		l.touchY = int(vs[1] * float32(l.device.PreviewHeight))
		if cmd.Param() == ParamFocusOnTouch {
			l.touch = touchFocus
		} else {
			l.touch = touchWhiteBalance
		}

	default:
		return fmt.Errorf("unsupported command id %#x", cmd.ID)
	}
	return nil
}

func setFloat(cmd Command, dst *float32) error {
	v, err := cmd.Float()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setAuto(cmd Command, flag *bool, evaluated, user *float32) error {
	on, err := cmd.Bool()
	if err != nil {
		return err
	}
	toggleAuto(flag, on, evaluated, user)
	return nil
}

// selectCamera swaps the camera under the preview lock so the renderer
// never sees a half switched camera.
func (l *Loop) selectCamera(mode camera.Mode) error {
	if mode == l.device.Mode {
		return nil
	}

	l.preview.mu.Lock()
	defer l.preview.mu.Unlock()

	device, err := l.conf.Opener(mode)
	if err != nil {
		return fmt.Errorf("could not open %v camera: %v", mode, err)
	}
	old := l.device.Sensor
	old.StopStreaming()
	if err := old.Close(); err != nil {
		log.Printf("closing %v camera: %v", l.device.Mode, err)
	}
	l.device = device
	l.shot = camera.Shot{}
	l.lensFocus = unknownFocus
	l.preview.resize(device.PreviewWidth, device.PreviewHeight)
	log.Printf("switched to %v camera", mode)
	return nil
}

// The writer calls these from its own goroutine. They hand the news to
// the loop goroutine so listeners are only ever called from there.
func (l *Loop) fileSystemChanged() {
	l.queue.Produce(Command{ID: uint32(paramFileSystemChanged)})
}

func (l *Loop) imageSetWritten(res *imagewriter.SetResult) {
	payload, err := yaml.Marshal(newWriteReport(res))
	if err != nil {
		log.Printf("could not encode write report: %v", err)
		return
	}
	l.queue.Produce(NewCommand(paramWriteResult, 0, payload))
}

func (l *Loop) takePicture() {
	count := l.live.PendingCount
	if l.conf.Throttler != nil && !l.conf.Throttler.Allow(count) {
		l.logs.Printf("picture not taken due to throttling")
		l.listener.CaptureThrottled()
		return
	}

	l.setCapturing(true)
	l.listener.CaptureStarted()
	l.capture(count)
	l.setCapturing(false)
	l.listener.CaptureCompleted()
}

func (l *Loop) setCapturing(on bool) {
	l.mu.Lock()
	l.status.Capturing = on
	l.mu.Unlock()
}

// capture takes one full size picture per burst slot and queues them for
// writing as one image set.
func (l *Loop) capture(count int) {
	sensor := l.device.Sensor
	sensor.StopStreaming()
	for sensor.ShotsPending() > 0 {
		sensor.GetFrame()
	}

	set := l.writer.NewImageSet()
	width, height := sensor.MaxImageSize()
	brightness := float32(1)
	if l.device.Flash != nil {
		brightness = l.device.Flash.MaxBrightness()
	}

	for i := 0; i < count; i++ {
		p := l.live.Pending[i]
		shot := &camera.Shot{
			Exposure:     int(p.Exposure),
			Gain:         p.Gain,
			WhiteBalance: int(p.WB),
			Width:        width,
			Height:       height,
			Format:       camera.YUV420p,
		}
		shot.AddAction(camera.Action{Kind: camera.FocusAction, Value: p.Focus})
		if p.Flash {
			shot.AddAction(camera.Action{Kind: camera.FlashAction, Value: brightness})
		}
		if err := sensor.Capture(shot); err != nil {
			log.Printf("could not capture picture %d: %v", i, err)
		}
	}

	format := imagewriter.FileFormat{Format: l.outputFormat, Quality: imagewriter.DefaultQuality}
	for sensor.ShotsPending() > 0 {
		if err := set.Add(format, sensor.GetFrame()); err != nil {
			log.Printf("could not add picture: %v", err)
		}
	}
	l.lensFocus = unknownFocus
	log.Printf("captured %d pictures for image set %d", set.Len(), set.ID())
	l.writer.Push(set)
}

func (l *Loop) previewCycle() {
	sensor := l.device.Sensor
	focuser := l.device.Focuser
	pv := &l.live.Preview
	shot := &l.shot

	shot.Exposure = int(pv.Exposure())
	shot.Gain = pv.Gain()
	shot.WhiteBalance = int(pv.WB())
	shot.Width = l.device.PreviewWidth
	shot.Height = l.device.PreviewHeight
	shot.Format = camera.YUV420p
	shot.Histogram = true
	shot.Sharpness = focuser != nil && !focuser.Idle()

	if !pv.AutoFocus && l.lensFocus != pv.User.Focus {
		shot.AddAction(camera.Action{Kind: camera.FocusAction, Value: pv.User.Focus})
		l.lensFocus = pv.User.Focus
	}

	if err := sensor.Stream(shot); err != nil {
		l.logs.Printf("could not stream preview: %v", err)
		return
	}
	frame := sensor.GetFrame()
	shot.ClearActions()
	if !frame.Valid() {
		l.logs.Printf("dropped preview frame: %v", frame.Err)
		return
	}

	switch l.touch {
	case touchFocus:
		if pv.AutoFocus && focuser != nil && focuser.Idle() {
			focuser.StartSweep()
		}
	case touchWhiteBalance:
		if frame.Image.Format == camera.YUV420p {
			wb := l.conf.ColourTemperature(shot.WhiteBalance, frame.Image, l.touchX, l.touchY)
			if l.conf.Verbose {
				log.Printf("white balance at (%d, %d): %dK", l.touchX, l.touchY, wb)
			}
			pv.Evaluated.WB = float32(wb)
			shot.WhiteBalance = wb
		}
	}

	if (pv.AutoExposure || pv.AutoGain) && l.conf.Exposer != nil {
		l.conf.Exposer.AutoExpose(shot, frame, camera.LimitsFor(sensor, exposureTarget))
		pv.Evaluated.Exposure = float32(shot.Exposure)
		pv.Evaluated.Gain = shot.Gain
	}
	if pv.AutoWB && l.conf.WhiteBalancer != nil {
		l.conf.WhiteBalancer.AutoWhiteBalance(shot, frame)
		pv.Evaluated.WB = float32(shot.WhiteBalance)
	}
	if focuser != nil && !focuser.Idle() {
		focuser.Update(frame, shot)
		pv.Evaluated.Focus = focusTarget(shot, frame.Focus)
		l.lensFocus = unknownFocus
	}

	normaliseHistogram(&pv.Histogram, frame.Histogram)

	if !l.preview.publish(frame.Image) && l.conf.Verbose {
		l.logs.Printf("preview frame not published")
	}

	l.notifyPreviewChanges()
	l.updateSnapshot()
	l.updateFPS()
}

// notifyPreviewChanges reports evaluated values that moved this cycle.
func (l *Loop) notifyPreviewChanges() {
	cur := &l.live.Preview
	old := &l.prev.Preview
	if cur.AutoExposure && cur.Evaluated.Exposure != old.Evaluated.Exposure {
		l.listener.PreviewParamChanged(ParamPreviewExposure)
	}
	if cur.AutoGain && cur.Evaluated.Gain != old.Evaluated.Gain {
		l.listener.PreviewParamChanged(ParamPreviewGain)
	}
	if cur.AutoWB && cur.Evaluated.WB != old.Evaluated.WB {
		l.listener.PreviewParamChanged(ParamPreviewWB)
	}
	if cur.AutoFocus && cur.Evaluated.Focus != old.Evaluated.Focus {
		l.listener.PreviewParamChanged(ParamPreviewFocus)
	}
}

// focusTarget returns where the next frame will be focused.
func focusTarget(shot *camera.Shot, current float32) float32 {
	for _, a := range shot.Actions {
		if a.Kind == camera.FocusAction {
			current = a.Value
		}
	}
	return current
}

// normaliseHistogram spreads the sensor's bins evenly over dst and scales
// them by the largest bin.
func normaliseHistogram(dst *[HistogramSize]float32, bins []int) {
	*dst = [HistogramSize]float32{}
	if len(bins) == 0 {
		return
	}
	if len(bins) > HistogramSize {
		bins = bins[:HistogramSize]
	}
	stride := HistogramSize / len(bins)

	max := 1
	for _, b := range bins {
		if b > max {
			max = b
		}
	}
	norm := 1 / float32(max)
	for i, b := range bins {
		dst[i*stride] = float32(b) * norm
	}
}

// updateSnapshot publishes the live state to readers in one copy.
func (l *Loop) updateSnapshot() {
	l.mu.Lock()
	l.prev = l.live
	l.status.ViewerActive = l.viewerActive
	l.status.Camera = l.device.Mode
	l.status.OutputFormat = l.outputFormat
	if l.writer != nil {
		l.status.OutputDir = l.writer.Dir()
	}
	l.status.Cycles++
	l.mu.Unlock()
}

func (l *Loop) updateFPS() {
	now := l.now()
	fps, ok := l.fps.frame(now)
	if ok {
		l.mu.Lock()
		l.status.FPS = fps
		l.mu.Unlock()
		if l.conf.Verbose {
			log.Printf("fps: %.3f jitter mean: %.3fms std: %.3fms", fps, l.jitter.stat.mean(), l.jitter.stat.stdDev())
		}
	}

	l.mu.Lock()
	current := l.status.FPS
	l.mu.Unlock()
	l.jitter.frame(now, current)
}
