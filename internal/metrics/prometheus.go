package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the speech companion.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Capture metrics
	FramesCaptured  prometheus.Counter
	OverflowFrames  prometheus.Counter
	FrameQueueDepth prometheus.Gauge
	InputLevel      prometheus.Gauge

	// Session metrics
	Recording        prometheus.Gauge
	SessionsStarted  prometheus.Counter
	SessionDuration  prometheus.Histogram
	SamplesDiscarded prometheus.Counter

	// Windowing metrics
	ChunksEmitted prometheus.Counter
	ChunkDuration prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  *prometheus.CounterVec
	TranscriptionSuccesses *prometheus.CounterVec
	TranscriptionFailures  *prometheus.CounterVec
	TranscriptionDuration  *prometheus.HistogramVec
	TranscriptionRetries   prometheus.Counter
	ChunksInFlight         prometheus.Gauge

	// Enrichment metrics
	RowsProduced       prometheus.Counter
	EnrichmentDuration prometheus.Histogram
	SignalsDetected    *prometheus.CounterVec
	DefinitionLookups  *prometheus.CounterVec

	// LLM metrics
	ProviderAttempts *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	ChainExhausted   prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Capture metrics
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_frames_captured_total",
			Help: "Total number of audio frames delivered by the capture callback",
		}),
		OverflowFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_input_overflow_frames_total",
			Help: "Total number of frames flagged with an input overflow",
		}),
		FrameQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "companion_frame_queue_depth",
			Help: "Frames waiting between the capture callback and the windower",
		}),
		InputLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "companion_input_level",
			Help: "Smoothed microphone input level, 0 to 1",
		}),

		// Session metrics
		Recording: factory.NewGauge(prometheus.GaugeOpts{
			Name: "companion_recording",
			Help: "1 while a recording session is active",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "companion_session_duration_seconds",
			Help:    "Duration of recording sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),
		SamplesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_samples_discarded_total",
			Help: "Samples dropped as partial windows when recording stopped",
		}),

		// Windowing metrics
		ChunksEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_chunks_emitted_total",
			Help: "Total number of audio chunks cut by the windower",
		}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "companion_chunk_duration_seconds",
			Help:    "Audio duration of emitted chunks",
			Buckets: prometheus.LinearBuckets(1, 1, 12),
		}),

		// Transcription metrics
		TranscriptionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_transcription_requests_total",
			Help: "Total number of transcription requests",
		}, []string{"engine"}),
		TranscriptionSuccesses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_transcription_successes_total",
			Help: "Total number of transcriptions that produced text",
		}, []string{"engine"}),
		TranscriptionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_transcription_failures_total",
			Help: "Total number of failed or empty transcriptions",
		}, []string{"engine", "reason"}),
		TranscriptionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "companion_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 11), // 100ms to ~2 minutes
		}, []string{"engine"}),
		TranscriptionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),
		ChunksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "companion_chunks_in_flight",
			Help: "Chunk workers currently transcribing or enriching",
		}),

		// Enrichment metrics
		RowsProduced: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_rows_produced_total",
			Help: "Total number of result rows delivered to the display",
		}),
		EnrichmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "companion_enrichment_duration_seconds",
			Help:    "Time spent enriching one utterance",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		SignalsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_signals_detected_total",
			Help: "Ambiguity and hesitation signals detected in utterances",
		}, []string{"signal"}),
		DefinitionLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_definition_lookups_total",
			Help: "Dictionary lookups by outcome",
		}, []string{"outcome"}),

		// LLM metrics
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_llm_attempts_total",
			Help: "LLM provider attempts by outcome",
		}, []string{"provider", "outcome"}),
		ProviderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "companion_llm_duration_seconds",
			Help:    "Duration of LLM provider attempts",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider"}),
		ChainExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_llm_chain_exhausted_total",
			Help: "Suggestions that fell back to the placeholder after every provider failed",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "companion_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrame counts a captured frame
func (m *Metrics) RecordFrame(overflow bool) {
	if m == nil {
		return
	}
	m.FramesCaptured.Inc()
	if overflow {
		m.OverflowFrames.Inc()
	}
}

// SetQueueDepth sets the current frame queue depth
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.FrameQueueDepth.Set(float64(depth))
}

// SetInputLevel sets the smoothed input level
func (m *Metrics) SetInputLevel(level float32) {
	if m == nil {
		return
	}
	m.InputLevel.Set(float64(level))
}

// RecordSessionStarted marks the start of a recording session
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.Recording.Set(1)
}

// RecordSessionStopped records the end of a session and the samples it discarded
func (m *Metrics) RecordSessionStopped(durationSeconds float64, discarded uint64) {
	if m == nil {
		return
	}
	m.Recording.Set(0)
	m.SessionDuration.Observe(durationSeconds)
	m.SamplesDiscarded.Add(float64(discarded))
}

// RecordChunkEmitted records a chunk cut by the windower
func (m *Metrics) RecordChunkEmitted(durationSeconds float64) {
	if m == nil {
		return
	}
	m.ChunksEmitted.Inc()
	m.ChunkDuration.Observe(durationSeconds)
}

// RecordTranscriptionRequest increments the transcription request counter
func (m *Metrics) RecordTranscriptionRequest(engine string) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.WithLabelValues(engine).Inc()
}

// RecordTranscriptionSuccess records a transcription that produced text
func (m *Metrics) RecordTranscriptionSuccess(engine string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionSuccesses.WithLabelValues(engine).Inc()
	m.TranscriptionDuration.WithLabelValues(engine).Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed or empty transcription
func (m *Metrics) RecordTranscriptionFailure(engine, reason string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionFailures.WithLabelValues(engine, reason).Inc()
	m.TranscriptionDuration.WithLabelValues(engine).Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	if m == nil {
		return
	}
	m.TranscriptionRetries.Inc()
}

// ChunkStarted increments the in-flight gauge
func (m *Metrics) ChunkStarted() {
	if m == nil {
		return
	}
	m.ChunksInFlight.Inc()
}

// ChunkFinished decrements the in-flight gauge
func (m *Metrics) ChunkFinished() {
	if m == nil {
		return
	}
	m.ChunksInFlight.Dec()
}

// RecordRow records an enriched row and how long enrichment took
func (m *Metrics) RecordRow(enrichmentSeconds float64) {
	if m == nil {
		return
	}
	m.RowsProduced.Inc()
	m.EnrichmentDuration.Observe(enrichmentSeconds)
}

// RecordSignal counts a detected ambiguity or hesitation signal
func (m *Metrics) RecordSignal(signal string) {
	if m == nil {
		return
	}
	m.SignalsDetected.WithLabelValues(signal).Inc()
}

// RecordDefinitionLookup counts a dictionary lookup by outcome
func (m *Metrics) RecordDefinitionLookup(outcome string) {
	if m == nil {
		return
	}
	m.DefinitionLookups.WithLabelValues(outcome).Inc()
}

// RecordProviderAttempt records one LLM provider attempt
func (m *Metrics) RecordProviderAttempt(provider, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordChainExhausted counts a suggestion where every provider failed
func (m *Metrics) RecordChainExhausted() {
	if m == nil {
		return
	}
	m.ChainExhausted.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
