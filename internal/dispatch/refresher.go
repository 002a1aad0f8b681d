package dispatch

import (
	"context"
	"sync"
	"time"

	"ghostnet_client/internal/domain"
	"ghostnet_client/internal/logger"
)

// Refresher периодически перечитывает состояние игры, пока она
// активна. Это второй (и последний) писатель кэшированного снимка:
// гонка с обновлением после действия допустима, декодирование
// идемпотентно и заменяет снимок целиком.
type Refresher struct {
	dispatcher *Dispatcher
	interval   time.Duration
	mu         sync.Mutex
	stop       chan struct{}
	stopOnce   sync.Once
	running    bool
}

// NewRefresher создает фоновый обновлятор снимка
func NewRefresher(d *Dispatcher, interval time.Duration) *Refresher {
	return &Refresher{
		dispatcher: d,
		interval:   interval,
		stop:       make(chan struct{}),
	}
}

// Start запускает цикл обновления в фоновом режиме
func (r *Refresher) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	log := logger.Component("refresher")
	log.Info("запуск фонового обновления", "interval", r.interval)

	// Stop мог прийти раньше Start - тогда не делаем даже первого чтения
	select {
	case <-r.stop:
		log.Info("остановка фонового обновления")
		return
	default:
	}

	// первоначальное чтение
	r.tick()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-r.stop:
			log.Info("остановка фонового обновления")
			return
		}
	}
}

// Stop останавливает цикл. Идемпотентен и безопасен в любом порядке
// относительно Start: закрытый канал остановки Start увидит даже если
// еще не успел войти в свой цикл.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

func (r *Refresher) tick() {
	log := logger.Component("refresher")

	if r.dispatcher.GameID() == 0 {
		return
	}

	// завершенную игру перечитывать незачем
	if snap := r.dispatcher.Current(); snap.Game != nil && snap.Game.Status == domain.StatusFinished {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.dispatcher.Refresh(ctx); err != nil {
		log.Warn("ошибка фонового обновления", "error", err)
	}
}
