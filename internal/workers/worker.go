package workers

import (
	"context"
	"log"
	"sync"
	"time"
)

// Worker is one periodic background job.
type Worker interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Manager runs registered workers on their own tickers.
type Manager struct {
	workers  []Worker
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

func NewManager() *Manager {
	return &Manager{stopChan: make(chan struct{})}
}

func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	log.Printf("✅ Worker '%s' registered (interval: %v)", w.Name(), w.Interval())
}

func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Printf("🚀 Starting %d worker(s)...", len(m.workers))

	for _, w := range m.workers {
		m.wg.Add(1)
		go m.runWorker(w)
	}
}

func (m *Manager) runWorker(w Worker) {
	defer m.wg.Done()

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	m.execute(w)

	for {
		select {
		case <-ticker.C:
			m.execute(w)
		case <-m.stopChan:
			log.Printf("🛑 Worker '%s' stopped", w.Name())
			return
		}
	}
}

func (m *Manager) execute(w Worker) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	if err := w.Run(ctx); err != nil {
		log.Printf("❌ Worker '%s' failed: %v", w.Name(), err)
		return
	}
	log.Printf("✅ Worker '%s' finished (duration: %v)", w.Name(), time.Since(start))
}

func (m *Manager) Stop() {
	close(m.stopChan)
	m.wg.Wait()
	log.Println("✅ All workers stopped")
}

// Names lists the registered workers, for the stats endpoint.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, len(m.workers))
	for i, w := range m.workers {
		names[i] = w.Name()
	}
	return names
}
