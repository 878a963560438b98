package sync

import "time"

// Options параметры цикла синхронизации
type Options struct {
	BackoffMin time.Duration // задержка после первой сетевой ошибки
	BackoffMax time.Duration // верхняя граница задержки
	MaxRetries int           // после стольких сетевых ошибок изменение помечается errored
	PullLimit  int           // размер страницы pull
	MaxErrors  int           // сколько последних ошибок хранить в SyncState.Errors
}

// DefaultOptions возвращает консервативные значения по умолчанию
func DefaultOptions() Options {
	return Options{
		BackoffMin: time.Second,
		BackoffMax: time.Minute,
		MaxRetries: 5,
		PullLimit:  200,
		MaxErrors:  50,
	}
}

// Backoff задержка перед следующей попыткой после retry-й ошибки:
// min(BackoffMax, BackoffMin * 2^(retry-1))
func (o Options) Backoff(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	d := o.BackoffMin
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= o.BackoffMax || d <= 0 {
			return o.BackoffMax
		}
	}
	if d > o.BackoffMax {
		return o.BackoffMax
	}
	return d
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.BackoffMin <= 0 {
		o.BackoffMin = def.BackoffMin
	}
	if o.BackoffMax < o.BackoffMin {
		o.BackoffMax = o.BackoffMin
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = def.MaxRetries
	}
	if o.PullLimit <= 0 {
		o.PullLimit = def.PullLimit
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = def.MaxErrors
	}
	return o
}
