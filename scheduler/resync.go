// scheduler/resync.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Refresher перезапускает загрузку во всех живых списках контактов
type Refresher interface {
	RefreshAll()
}

// StartResync периодически запускает полный проход загрузки для всех
// соединений и блокируется до отмены ctx. Нулевой интервал отключает задачу.
func StartResync(ctx context.Context, interval time.Duration, target Refresher, log logrus.FieldLogger) error {
	if interval <= 0 {
		log.Info("ℹ️ Периодический пересчет контактов отключен")
		return nil
	}

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	log.Infof("Запуск планировщика пересчета контактов с интервалом %v", interval)

	_, err := scheduler.Every(interval).WaitForSchedule().Do(func() {
		log.Debug("ℹ️ Запланированный пересчет контактов")
		target.RefreshAll()
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке планировщика: %w", err)
	}

	// Запускаем планировщик
	scheduler.StartAsync()

	// Ожидаем сигнал остановки из контекста
	<-ctx.Done()

	// Останавливаем планировщик
	scheduler.Stop()
	log.Info("Планировщик пересчета контактов остановлен")
	return nil
}
