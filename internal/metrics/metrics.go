package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chansage_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Slack metrics
	SlackMessagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_slack_messages_fetched_total",
			Help: "Total number of Slack messages fetched from channel history",
		},
		[]string{"channel", "status"},
	)

	SlackReplyFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_slack_reply_fetches_total",
			Help: "Total number of thread reply fetches",
		},
		[]string{"status"},
	)

	// Ingestion metrics
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_messages_ingested_total",
			Help: "Total number of messages run through embed+upsert",
		},
		[]string{"channel", "status"},
	)

	// Embedding metrics
	EmbeddingGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_embedding_generations_total",
			Help: "Total number of embedding generations",
		},
		[]string{"status"},
	)

	EmbeddingGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chansage_embedding_generation_duration_seconds",
			Help:    "Duration of embedding generation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Vector store metrics
	VectorUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_vector_upserts_total",
			Help: "Total number of vector store upserts",
		},
		[]string{"status"},
	)

	VectorQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_vector_queries_total",
			Help: "Total number of vector store similarity queries",
		},
		[]string{"status"},
	)

	VectorQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chansage_vector_query_duration_seconds",
			Help:    "Duration of vector store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RAG metrics
	QuestionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_questions_processed_total",
			Help: "Total number of questions answered through the RAG flow",
		},
		[]string{"status"},
	)

	QuestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chansage_question_duration_seconds",
			Help:    "Duration of question processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CompletionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_completion_calls_total",
			Help: "Total number of completion provider calls",
		},
		[]string{"status"},
	)

	CompletionCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chansage_completion_call_duration_seconds",
			Help:    "Duration of completion provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Database metrics
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chansage_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	// Backfill metrics
	MessagesAwaitingEmbedding = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chansage_messages_awaiting_embedding",
			Help: "Number of persisted messages with no vector store record",
		},
	)
)
