/*
 * MIT License
 *
 * Copyright (c) 2026 ntstream contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config holds the validated configuration structs for the stream
// socket core: TLS material and connect/send/receive options.
package config

import (
	"crypto/tls"
	"fmt"

	libval "github.com/go-playground/validator/v10"
)

// TLSConfig carries the certificate material and negotiation bounds for an
// upgrade.
type TLSConfig struct {
	Certificates []tls.Certificate `validate:"omitempty"`
	RootCAs      *tls.CertPool
	ClientCAs    *tls.CertPool
	ServerName   string `validate:"omitempty,hostname|ip"`
	MinVersion   uint16 `validate:"omitempty,min=769"` // tls.VersionSSL30+1
	MaxVersion   uint16 `validate:"omitempty,min=769"`
	ClientAuth   tls.ClientAuthType
}

// Validate runs struct validation via go-playground/validator.
func (c *TLSConfig) Validate() error {
	if err := libval.New().Struct(c); err != nil {
		return fmt.Errorf("tls config validation: %w", err)
	}
	if c.MinVersion != 0 && c.MaxVersion != 0 && c.MinVersion > c.MaxVersion {
		return fmt.Errorf("tls config validation: versionMin > versionMax")
	}
	return nil
}

// ClientTLSConfig builds a *tls.Config for the client (upgrade) side.
func (c *TLSConfig) ClientTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: c.Certificates,
		RootCAs:      c.RootCAs,
		ServerName:   c.ServerName,
		MinVersion:   c.MinVersion,
		MaxVersion:   c.MaxVersion,
	}
}

// ServerTLSConfig builds a *tls.Config for the server (upgrade) side.
func (c *TLSConfig) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: c.Certificates,
		ClientCAs:    c.ClientCAs,
		ClientAuth:   c.ClientAuth,
		MinVersion:   c.MinVersion,
		MaxVersion:   c.MaxVersion,
	}
}
