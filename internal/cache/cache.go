// Package cache provee un cache de bytes con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Aquí se usa para el estado anti-CSRF del flujo OAuth: best effort, una
// falla de cache nunca bloquea el flujo.
package cache

import "time"

// Cache define las operaciones mínimas que usa el servicio.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}

// Noop es un Cache que no guarda nada. Implementación aceptable cuando la
// persistencia de estado CSRF no es requerida.
type Noop struct{}

func (Noop) Get(string) ([]byte, bool)         { return nil, false }
func (Noop) Set(string, []byte, time.Duration) {}
func (Noop) Delete(string)                     {}
