package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/boiler-vision/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"lower": strings.ToLower,
	"ts": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Boiler Vision</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.blinking { color: orange; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
img { max-width: 100%; }
</style>
</head>
<body>
<h1>Boiler Vision</h1>

<h2>State</h2>
<table>
{{if .HasState}}
<tr><th>Charge</th><td id="percentage">{{.State.Percentage}}%</td></tr>
<tr><th>Heating</th><td id="heating" class="{{lower (onOff .State.Heating)}}">{{onOff .State.Heating}}{{if .State.Ambiguous}} <span class="error">(ambiguous)</span>{{end}}</td></tr>
{{range $i, $d := .Lights}}<tr><th>Light {{$i}}</th><td class="{{lower $d}}">{{$d}}</td></tr>
{{end}}<tr><th>Room light</th><td class="{{lower (onOff .RoomLight)}}">{{onOff .RoomLight}}</td></tr>
<tr><th>Button pressed</th><td>{{if .ButtonPressed}}yes{{else}}no{{end}}</td></tr>
{{else}}
<tr><th>Charge</th><td id="percentage" class="unknown">UNKNOWN</td></tr>
{{end}}
<tr><th>Last cycle</th><td>{{ts .LastCycle}}</td></tr>
{{if .LastError}}<tr><th>Last error</th><td class="error">{{.LastError}} ({{ts .LastErrorAt}})</td></tr>{{end}}
</table>

{{if not .FrameAt.IsZero}}<h2>Reference frame</h2>
<p><img src="/frame.jpg" alt="reference frame captured {{ts .FrameAt}}"></p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Cycles</h2>
<table>
<tr><th>Total</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>Failed</th><td>{{.Counts.Failed}}</td></tr>
<tr><th>Ambiguous</th><td>{{.Counts.Ambiguous}}</td></tr>
<tr><th>Skipped</th><td>{{.Counts.Skipped}}</td></tr>
</table>

{{if .History}}<h2>History</h2>
<table id="history">
<tr><th>Since</th><th>Charge</th><th>Heating</th><th>Room light</th></tr>
{{range .History}}<tr><td>{{ts .At}}</td><td>{{.Percentage}}%</td><td>{{onOff .Heating}}</td><td>{{onOff .RoomLight}}</td></tr>
{{end}}</table>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{ts .StartTime}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Window</th><td>{{.Config.Samples}} x {{.Config.SampleIntervalMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Camera</th><td>{{.Config.CameraIndex}}</td></tr>
<tr><th>Error images</th><td>{{.Config.ErrorImageDir}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, frameAt time.Time) error {
	data := struct {
		status.Snapshot
		Lights  []string
		FrameAt time.Time
	}{
		Snapshot: snap,
		Lights:   status.LightLabels(snap.State),
		FrameAt:  frameAt,
	}
	return indexTmpl.Execute(w, data)
}
