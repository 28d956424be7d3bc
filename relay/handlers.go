// go-suear
// Copyright (c) 2026 The go-suear Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-suear.
//
// go-suear is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-suear is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-suear; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package relay

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	suear "github.com/suearlabs/go-suear"
)

var indexTemplate = template.Must(template.New("index").Parse(`<html>
<head><title>Suear camera</title></head>
<body>
<img src="/stream">
<p><b>Device:</b> {{.Vendor}} {{.Model}} {{.Version}}<br>
<b>Serial number:</b> {{.Serial}}<br>
<b>Battery:</b> <span id="battery">{{.Battery}}</span>%
(<span id="charging">{{if .Charging}}Charging{{else}}Not charging{{end}}</span>)</p>
<script>
setInterval(async function () {
  const battery = await fetch("/battery");
  document.getElementById("battery").textContent = await battery.text();
  const charging = await fetch("/charging");
  document.getElementById("charging").textContent =
    (await charging.text()) === "1" ? "Charging" : "Not charging";
}, 5000);
</script>
</body>
</html>
`))

type indexData struct {
	Vendor   string
	Model    string
	Version  string
	Serial   string
	Battery  string
	Charging bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := indexData{Battery: "?"}

	var errs []error
	var err error
	if data.Vendor, err = s.device.Vendor(ctx); err != nil {
		errs = append(errs, err)
	}
	if data.Model, err = s.device.Model(ctx); err != nil {
		errs = append(errs, err)
	}
	if data.Version, err = s.device.FirmwareVersion(ctx); err != nil {
		errs = append(errs, err)
	}
	if data.Serial, err = s.device.SerialNumber(ctx); err != nil {
		errs = append(errs, err)
	}
	if level, err := s.device.BatteryLevel(ctx); err == nil {
		data.Battery = strconv.Itoa(level)
	} else {
		errs = append(errs, err)
	}
	if data.Charging, err = s.device.IsCharging(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("index page is missing device details", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Warn("render index", "error", err)
	}
}

// property serves the string returned by get as plain text
func (s *Server) property(get func(ctx context.Context) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := get(r.Context())
		if err != nil {
			s.deviceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write([]byte(value))
	}
}

// deviceError maps a session error to an HTTP status
func (s *Server) deviceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, ErrTooManyViewers), errors.Is(err, suear.ErrUnreachable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, suear.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	s.logger.Warn("device request failed", "path", r.URL.Path, "status", status, "error", err)
	http.Error(w, fmt.Sprintf("camera error: %v", err), status)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, frames, err := s.hub.subscribe(r.Context())
	if err != nil {
		s.deviceError(w, r, err)
		return
	}
	defer s.hub.unsubscribe(id)

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(s.config.Boundary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-frames:
			if !ok {
				return
			}
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {strconv.Itoa(len(data))},
				"X-Timestamp":    {strconv.FormatFloat(float64(time.Now().UnixMicro())/1e6, 'f', 6, 64)},
			})
			if err != nil {
				return
			}
			if _, err := part.Write(data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	id, frames, err := s.hub.subscribe(r.Context())
	if err != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}
	defer s.hub.unsubscribe(id)

	// The client never sends data; reading only notices it going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					s.logger.Warn("websocket read error", "viewer", id, "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case data, ok := <-frames:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				s.logger.Warn("websocket write failed", "viewer", id, "error", err)
				return
			}
		}
	}
}
