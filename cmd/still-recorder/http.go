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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/TheCacophonyProject/still-recorder/camera"
	"github.com/TheCacophonyProject/still-recorder/capture"
	"github.com/TheCacophonyProject/still-recorder/gallery"
	"github.com/TheCacophonyProject/still-recorder/triplebuffer"
)

const previewQuality = 80

// previewSource is where preview frames come from.
type previewSource interface {
	Latest() *camera.Image
}

// previewEncoder turns preview frames into JPEGs at a steady rate. It is
// the only reader of the preview provider.
type previewEncoder struct {
	source previewSource
	period time.Duration
	jpegs  *triplebuffer.Locked[[]byte]

	// Serialises readers of the front slot.
	mu sync.Mutex
}

func newPreviewEncoder(source previewSource, fps int) *previewEncoder {
	return &previewEncoder{
		source: source,
		period: time.Second / time.Duration(fps),
		jpegs:  triplebuffer.NewLocked(new([]byte), new([]byte), new([]byte)),
	}
}

func (e *previewEncoder) run(ctx context.Context) {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.encode(); err != nil {
				log.Printf("could not encode preview: %v", err)
			}
		}
	}
}

func (e *previewEncoder) encode() error {
	img := e.source.Latest()
	if img == nil {
		return nil
	}
	view, err := img.YCbCr()
	if err != nil {
		return err
	}
	back := e.jpegs.Back()
	buf := bytes.NewBuffer((*back)[:0])
	if err := jpeg.Encode(buf, view, &jpeg.Options{Quality: previewQuality}); err != nil {
		return err
	}
	*back = buf.Bytes()
	e.jpegs.SwapBack()
	return nil
}

// latest returns a copy of the newest preview JPEG, or nil before the
// first one.
func (e *previewEncoder) latest() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	front := e.jpegs.SwapFront()
	if len(*front) == 0 {
		return nil
	}
	return append([]byte(nil), *front...)
}

// loopControl is the part of the capture loop the HTTP server uses.
type loopControl interface {
	commandSink
	Status() capture.Status
	Snapshot() capture.CaptureState
}

type httpServer struct {
	loop     loopControl
	previews *previewEncoder
	dir      string
}

func newRouter(loop loopControl, previews *previewEncoder, dir string) *mux.Router {
	s := &httpServer{loop: loop, previews: previews, dir: dir}

	router := mux.NewRouter()
	router.HandleFunc("/preview.jpg", s.previewHandler).Methods("GET")
	router.HandleFunc("/state", s.stateHandler).Methods("GET")
	router.HandleFunc("/stacks", s.listStacksHandler).Methods("GET")
	router.HandleFunc("/stacks/{id:[0-9]+}", s.getStackHandler).Methods("GET")
	router.HandleFunc("/stacks/{id:[0-9]+}", s.deleteStackHandler).Methods("DELETE")
	router.HandleFunc("/stacks/{id:[0-9]+}/{name}", s.stackFileHandler).Methods("GET")
	router.HandleFunc("/take-picture", s.takePictureHandler).Methods("POST")
	router.HandleFunc("/param/{param}", s.paramHandler).Methods("POST")
	return router
}

func (s *httpServer) previewHandler(w http.ResponseWriter, r *http.Request) {
	data := s.previews.latest()
	if data == nil {
		logError("no preview available", w, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

type stateResponse struct {
	FPS          float32              `json:"fps"`
	Capturing    bool                 `json:"capturing"`
	ViewerActive bool                 `json:"viewerActive"`
	Camera       string               `json:"camera"`
	OutputFormat string               `json:"outputFormat"`
	OutputDir    string               `json:"outputDir"`
	Exposure     float32              `json:"exposure"`
	Gain         float32              `json:"gain"`
	WB           float32              `json:"wb"`
	Focus        float32              `json:"focus"`
	AutoExposure bool                 `json:"autoExposure"`
	AutoGain     bool                 `json:"autoGain"`
	AutoWB       bool                 `json:"autoWB"`
	AutoFocus    bool                 `json:"autoFocus"`
	Burst        []capture.ShotParams `json:"burst"`
}

func (s *httpServer) stateHandler(w http.ResponseWriter, r *http.Request) {
	st := s.loop.Status()
	snap := s.loop.Snapshot()
	pv := &snap.Preview
	writeJSON(w, stateResponse{
		FPS:          st.FPS,
		Capturing:    st.Capturing,
		ViewerActive: st.ViewerActive,
		Camera:       st.Camera.String(),
		OutputFormat: st.OutputFormat.String(),
		OutputDir:    st.OutputDir,
		Exposure:     pv.Exposure(),
		Gain:         pv.Gain(),
		WB:           pv.WB(),
		Focus:        pv.Focus(),
		AutoExposure: pv.AutoExposure,
		AutoGain:     pv.AutoGain,
		AutoWB:       pv.AutoWB,
		AutoFocus:    pv.AutoFocus,
		Burst:        append([]capture.ShotParams(nil), snap.Pending[:snap.PendingCount]...),
	})
}

func (s *httpServer) listStacksHandler(w http.ResponseWriter, r *http.Request) {
	stacks, err := gallery.List(s.dir)
	if err != nil {
		logError(fmt.Sprintf("could not list stacks: %v", err), w, http.StatusInternalServerError)
		return
	}
	if stacks == nil {
		stacks = []*gallery.Stack{}
	}
	writeJSON(w, stacks)
}

func (s *httpServer) findStack(w http.ResponseWriter, r *http.Request) *gallery.Stack {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		logError("bad stack id", w, http.StatusBadRequest)
		return nil
	}
	stack, err := gallery.Find(s.dir, id)
	if err != nil {
		logError(fmt.Sprintf("stack %d not found", id), w, http.StatusNotFound)
		return nil
	}
	return stack
}

func (s *httpServer) getStackHandler(w http.ResponseWriter, r *http.Request) {
	if stack := s.findStack(w, r); stack != nil {
		writeJSON(w, stack)
	}
}

func (s *httpServer) deleteStackHandler(w http.ResponseWriter, r *http.Request) {
	stack := s.findStack(w, r)
	if stack == nil {
		return
	}
	if err := gallery.Remove(stack); err != nil {
		logError(fmt.Sprintf("could not remove stack %d: %v", stack.ID, err), w, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stackFileHandler serves the images and thumbnails a stack lists.
func (s *httpServer) stackFileHandler(w http.ResponseWriter, r *http.Request) {
	stack := s.findStack(w, r)
	if stack == nil {
		return
	}
	name := mux.Vars(r)["name"]
	for _, img := range stack.Images {
		if name == img.Name || name == img.Thumbnail {
			http.ServeFile(w, r, stack.Path(name))
			return
		}
	}
	logError(fmt.Sprintf("%s is not part of stack %d", name, stack.ID), w, http.StatusNotFound)
}

func (s *httpServer) takePictureHandler(w http.ResponseWriter, r *http.Request) {
	s.loop.Submit(capture.BoolCommand(capture.ParamTakePicture, true))
	w.WriteHeader(http.StatusAccepted)
}

// paramHandler sets a parameter named by id or name. The "value" form
// field holds the value, comma separated for array parameters, and
// "slot" the burst slot of a shot.
func (s *httpServer) paramHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := parseParamName(mux.Vars(r)["param"])
	if !ok {
		logError("unknown parameter", w, http.StatusNotFound)
		return
	}
	slot := 0
	if v := r.FormValue("slot"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n >= capture.MaxBurst {
			logError("bad slot", w, http.StatusBadRequest)
			return
		}
		slot = n
	}
	cmd, err := paramCommand(p, slot, r.FormValue("value"))
	if err != nil {
		logError(err.Error(), w, http.StatusBadRequest)
		return
	}
	s.loop.Submit(cmd)
	w.WriteHeader(http.StatusAccepted)
}

func parseParamName(s string) (capture.Param, bool) {
	if id, err := strconv.Atoi(s); err == nil {
		if id < 0 || id > int(capture.ParamSelectCamera) {
			return 0, false
		}
		return capture.Param(id), true
	}
	return capture.ParseParam(s)
}

// paramCommand encodes value with the payload type p expects.
func paramCommand(p capture.Param, slot int, value string) (capture.Command, error) {
	switch p {
	case capture.ParamOutputDirectory:
		if value == "" {
			return capture.Command{}, fmt.Errorf("%v needs a value", p)
		}
		return capture.StringCommand(p, value), nil

	case capture.ParamPreviewExposure, capture.ParamPreviewFocus,
		capture.ParamPreviewGain, capture.ParamPreviewWB:
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return capture.Command{}, fmt.Errorf("%v: %v", p, err)
		}
		return capture.FloatCommand(p, float32(v)), nil

	case capture.ParamShot, capture.ParamFocusOnTouch, capture.ParamWBOnTouch, capture.ParamResolution:
		var vs []float32
		for _, f := range strings.Split(value, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
			if err != nil {
				return capture.Command{}, fmt.Errorf("%v: %v", p, err)
			}
			vs = append(vs, float32(v))
		}
		return capture.SlotFloatsCommand(p, slot, vs...), nil

	case capture.ParamLuminanceHistogram, capture.ParamCaptureFPS:
		return capture.Command{}, fmt.Errorf("%v is read only", p)
	}

	if value == "true" || value == "false" {
		return capture.BoolCommand(p, value == "true"), nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return capture.Command{}, fmt.Errorf("%v: %v", p, err)
	}
	return capture.IntCommand(p, n), nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("could not write response: %v", err)
	}
}

func logError(errorString string, w http.ResponseWriter, code int) {
	log.Printf("Error: %s", errorString)
	http.Error(w, errorString, code)
}
