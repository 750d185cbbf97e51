// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package options

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Identifier accepts values usable as a single URL path segment.
func Identifier(v string) error {
	if strings.ContainsAny(v, "/\\?#") {
		return fmt.Errorf("%q must not contain path or query characters", v)
	}
	if strings.TrimSpace(v) != v {
		return fmt.Errorf("%q must not start or end with whitespace", v)
	}
	return nil
}

// BaseURL accepts absolute http(s) URLs.
func BaseURL(v string) error {
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", v)
	}
	return nil
}

// Duration accepts positive Go duration strings such as "30s" or "1m".
func Duration(v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

// IntRange accepts integers within [min, max].
func IntRange(min, max int) CheckFunc {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		if n < min || n > max {
			return fmt.Errorf("%d is outside the range %d..%d", n, min, max)
		}
		return nil
	}
}

// Enum accepts only the listed values.
func Enum(values ...string) CheckFunc {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return func(v string) error {
		if _, ok := allowed[v]; !ok {
			return fmt.Errorf("unsupported value %q", v)
		}
		return nil
	}
}
