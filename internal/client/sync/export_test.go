package sync

// withBeforeSend задает функцию, вызываемую после пометки пакета InFlight и перед его отправкой
func (s *Service) withBeforeSend(fn func()) *Service {
	s.beforeSend = fn
	return s
}
