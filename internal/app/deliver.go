package app

import "context"

// deliver hands the event to the gateway as a detached unit of work. The
// publisher is never blocked on delivery completion and never learns about
// failures; those are resolved by the bounded retry below.
func (s *Service) deliver(conn string, ev Event) {
	go s.emitWithRetry(conn, ev)
}

// emitWithRetry attempts delivery up to the configured bound with no delay
// between attempts. Exhausting the bound logs and drops the event: delivery
// is best-effort, at-most-N-attempts, with no ordering guarantee relative to
// other in-flight events for the same connection.
func (s *Service) emitWithRetry(conn string, ev Event) {
	for attempt := 1; ; attempt++ {
		err := s.gateway.Emit(context.Background(), conn, ev.Name, ev.Data)
		if err == nil {
			return
		}
		if attempt >= s.limits.MaxEmitAttempts {
			s.log.Errorf("emit %s to %s failed %d times, giving up", ev.Name, conn, attempt)
			return
		}
		s.log.Errorf("emit %s to %s failed: %v, retrying", ev.Name, conn, err)
	}
}
