package monitor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// Метрики Prometheus. Зеркалируют внутренние счетчики для дашбордов;
// источником истины для вердикта здоровья остается сам монитор, потому
// что счетчики Prometheus не сбрасываются оператором.
var errorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "carousel_pipeline_errors_total",
		Help: "Total number of pipeline errors by type.",
	},
	[]string{"type"},
)

const (
	historyCap   = 100
	recentWindow = 5 * time.Minute

	// Пороги критичности: рендер ломается быстро и громко, кеш может
	// деградировать дольше, прежде чем это станет проблемой.
	renderCriticalThreshold = 5
	cacheCriticalThreshold  = 10

	// Порог частоты, ошибок в минуту за последние пять минут.
	healthyMaxErrorRate = 2.0
)

// ErrorRecord - одна запись журнала сбоев.
type ErrorRecord struct {
	Kind      models.ErrorKind `json:"type"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// Metrics - снимок счетчиков монитора.
type Metrics struct {
	Total         int64                      `json:"total"`
	ByKind        map[models.ErrorKind]int64 `json:"by_type"`
	LastErrorTime *time.Time                 `json:"last_error_time,omitempty"`
}

// HealthStatus - производный вердикт здоровья конвейера.
type HealthStatus struct {
	Healthy          bool    `json:"healthy"`
	ErrorRate        float64 `json:"error_rate"` // Ошибок в минуту за последние пять минут
	RecentErrorCount int     `json:"recent_error_count"`
	CriticalErrors   bool    `json:"critical_errors"`
}

// ErrorMonitor классифицирует сбои конвейера, ведет счетчики по видам и
// ограниченный журнал, выводит вердикт здоровья. Безопасен для
// конкурентных вызовов из параллельных пакетов рендеринга.
type ErrorMonitor struct {
	logger *zap.Logger

	mu            sync.Mutex
	counters      map[models.ErrorKind]int64
	total         int64
	lastErrorTime time.Time
	history       []ErrorRecord // Свежие записи в начале
	now           func() time.Time
}

// NewErrorMonitor создает монитор с пустыми счетчиками.
func NewErrorMonitor(logger *zap.Logger) *ErrorMonitor {
	return &ErrorMonitor{
		logger:   logger.Named("ErrorMonitor"),
		counters: make(map[models.ErrorKind]int64),
		now:      time.Now,
	}
}

// Record учитывает ошибку конвейера. Вид берется из цепочки ошибки:
// он назначается в точке возникновения, а не выводится из текста.
func (m *ErrorMonitor) Record(err error) {
	if err == nil {
		return
	}
	kind := models.KindOf(err)
	errorsTotal.WithLabelValues(string(kind)).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[kind]++
	m.total++
	m.lastErrorTime = m.now()

	record := ErrorRecord{Kind: kind, Message: err.Error(), Timestamp: m.lastErrorTime}
	m.history = append([]ErrorRecord{record}, m.history...)
	if len(m.history) > historyCap {
		m.history = m.history[:historyCap]
	}

	m.logger.Warn("Pipeline error recorded",
		zap.String("type", string(kind)),
		zap.String("message", record.Message),
	)
}

// GetMetrics возвращает снимок счетчиков.
func (m *ErrorMonitor) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind := make(map[models.ErrorKind]int64, len(m.counters))
	for kind, count := range m.counters {
		byKind[kind] = count
	}

	metrics := Metrics{Total: m.total, ByKind: byKind}
	if !m.lastErrorTime.IsZero() {
		last := m.lastErrorTime
		metrics.LastErrorTime = &last
	}
	return metrics
}

// GetHealthStatus вычисляет вердикт здоровья: частота свежих ошибок ниже
// порога и счетчики критичных видов в допуске. Чистое чтение без побочных
// эффектов.
func (m *ErrorMonitor) GetHealthStatus() HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-recentWindow)
	recent := 0
	for _, record := range m.history {
		if record.Timestamp.After(cutoff) {
			recent++
		}
	}

	errorRate := float64(recent) / recentWindow.Minutes()
	critical := m.counters[models.ErrorKindRender] > renderCriticalThreshold ||
		m.counters[models.ErrorKindCache] > cacheCriticalThreshold

	return HealthStatus{
		Healthy:          errorRate < healthyMaxErrorRate && !critical,
		ErrorRate:        errorRate,
		RecentErrorCount: recent,
		CriticalErrors:   critical,
	}
}

// History возвращает копию журнала, свежие записи первыми.
func (m *ErrorMonitor) History() []ErrorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ErrorRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Reset обнуляет счетчики и журнал. Только явное операторское действие:
// счетчики никогда не сбрасываются сами.
func (m *ErrorMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters = make(map[models.ErrorKind]int64)
	m.total = 0
	m.lastErrorTime = time.Time{}
	m.history = nil

	m.logger.Info("Error monitor metrics reset")
}
