package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Registry counts requests per route and status. It is intentionally
// in-process only; counters reset on restart.
type Registry struct {
	mu       sync.Mutex
	started  time.Time
	requests map[string]map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		started:  time.Now(),
		requests: make(map[string]map[string]int64),
	}
}

func (r *Registry) observe(route string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byStatus, ok := r.requests[route]
	if !ok {
		byStatus = make(map[string]int64)
		r.requests[route] = byStatus
	}
	byStatus[strconv.Itoa(status)]++
}

func (r *Registry) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else {
				status = http.StatusInternalServerError
			}
		}
		r.observe(c.Request().Method+" "+c.Path(), status)
		return err
	}
}

func (r *Registry) Handler(c echo.Context) error {
	r.mu.Lock()
	snapshot := make(map[string]map[string]int64, len(r.requests))
	for route, byStatus := range r.requests {
		cp := make(map[string]int64, len(byStatus))
		for status, n := range byStatus {
			cp[status] = n
		}
		snapshot[route] = cp
	}
	uptime := time.Since(r.started)
	r.mu.Unlock()

	return c.JSON(http.StatusOK, echo.Map{
		"uptime_seconds": int64(uptime.Seconds()),
		"requests":       snapshot,
	})
}
