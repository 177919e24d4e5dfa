package launcher

import (
	"encoding/json"
	"fmt"
)

// Имена переменных окружения, через которые воркер получает адреса
// control-plane и приёмника логов.
const (
	EnvControlDescriptor = "CONTROL_API_SERVICE_DESCRIPTOR"
	EnvLoggingDescriptor = "LOGGING_API_SERVICE_DESCRIPTOR"
)

// Descriptor — JSON-дескриптор сервиса, передаваемый воркеру.
type Descriptor struct {
	// URL — адрес host:port.
	URL string `json:"url"`
}

// EncodeDescriptor сериализует дескриптор для переменной окружения.
func EncodeDescriptor(addr string) string {
	b, _ := json.Marshal(Descriptor{URL: addr})
	return string(b)
}

// ParseDescriptor разбирает дескриптор из значения переменной окружения.
func ParseDescriptor(value string) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal([]byte(value), &d); err != nil {
		return Descriptor{}, fmt.Errorf("parse service descriptor: %w", err)
	}
	if d.URL == "" {
		return Descriptor{}, fmt.Errorf("service descriptor has no url: %s", value)
	}
	return d, nil
}
