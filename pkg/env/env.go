package env

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgstrings "github.com/klwxsrx/go-app-shell/pkg/strings"
)

type availableTypes interface {
	bool | int | uint | float64 | string | time.Time | time.Duration | uuid.UUID
}

func Must[T any](val T, err error) T {
	if err != nil {
		panic(fmt.Errorf("failed to parse environment: %w", err))
	}
	return val
}

// Key builds an environment variable name from name parts, e.g. Key("session", "redisKey") is SESSION_REDIS_KEY.
func Key(parts ...string) string {
	converted := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		converted = append(converted, pkgstrings.ToScreamingSnakeCase(part))
	}

	return strings.Join(converted, "_")
}

func Parse[T availableTypes](key string) (T, error) {
	var blank T
	str, ok := os.LookupEnv(key)
	if !ok {
		return blank, notFoundError(key, blank)
	}

	v, err := pkgstrings.ParseTypedValue[T](strings.TrimSpace(str))
	if err != nil {
		return blank, fmt.Errorf("%w: %w", invalidValueError(key, blank), err)
	}

	return v, nil
}

// ParseOptional returns nil when the variable is unset or empty.
func ParseOptional[T availableTypes](key string) (*T, error) {
	str, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(str) == "" {
		return nil, nil
	}

	v, err := Parse[T](key)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func ParseDefault[T availableTypes](key string, defaultValue T) (T, error) {
	v, err := ParseOptional[T](key)
	if err != nil {
		return defaultValue, err
	}
	if v == nil {
		return defaultValue, nil
	}

	return *v, nil
}

func ParseList[T availableTypes](key string, delimiter string) ([]T, error) {
	str, ok := os.LookupEnv(key)
	if !ok {
		return nil, notFoundError(key, []T{})
	}

	strList := pkgstrings.SplitNonEmpty(str, delimiter)
	resultList := make([]T, 0, len(strList))
	for _, item := range strList {
		t, err := pkgstrings.ParseTypedValue[T](item)
		if err != nil {
			return nil, invalidValueError(key, resultList)
		}
		resultList = append(resultList, t)
	}

	return resultList, nil
}

func notFoundError(key string, v any) error {
	return fmt.Errorf("env %s with type %T not found", key, v)
}

func invalidValueError(key string, v any) error {
	return fmt.Errorf("env %s with type %T has invalid value", key, v)
}
