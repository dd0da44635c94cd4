package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusChatConnTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chat_conn_total",
	Help: "Total number of accepted chat connections",
})

var prometheusChatConnActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chat_conn_active",
	Help: "Number of active chat connections",
})

var prometheusChatConnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "chat_conn_duration_seconds",
	Help: "Duration of chat connections",
})

var prometheusChatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chat_messages_total",
	Help: "Total number of chat messages routed",
})

var prometheusVoiceConnTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "voice_conn_total",
	Help: "Total number of accepted voice connections",
})

var prometheusVoiceConnActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "voice_conn_active",
	Help: "Number of active voice connections",
})

var prometheusVoiceConnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "voice_conn_duration_seconds",
	Help: "Duration of voice connections",
})

var prometheusCallsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "calls_started_total",
	Help: "Total number of private calls initiated",
})

var prometheusCallsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "calls_active",
	Help: "Number of private calls currently connected",
})

var prometheusAudioFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "audio_frames_relayed_total",
	Help: "Total number of audio frames relayed",
})

var prometheusAudioBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "audio_bytes_relayed_total",
	Help: "Total number of audio payload bytes relayed",
})

var prometheusAudioFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "audio_frames_dropped_total",
	Help: "Total number of audio frames dropped for lack of a route",
})
