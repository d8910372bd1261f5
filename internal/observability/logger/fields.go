package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar para no repetir claves mal tipeadas por todo el código.

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path crea un campo para el path del request.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// TenantID crea un campo para el ID del tenant.
func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

// Provider crea un campo para el proveedor social.
func Provider(v string) zap.Field { return zap.String("provider", v) }

// ReportID crea un campo para el ID de un reporte programado.
func ReportID(v string) zap.Field { return zap.String("report_id", v) }

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// Count crea un campo para un conteo.
func Count(v int) zap.Field { return zap.Int("count", v) }

// String crea un campo string genérico.
func String(key, v string) zap.Field { return zap.String(key, v) }

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field { return zap.Int(key, v) }

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
