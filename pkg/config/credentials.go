/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the gateway's credentials and tunable runtime
// knobs, layering Docker/Kubernetes secret mounts over environment
// variables the way the vendor's own reference client does.
package config

import (
	"os"
	"strings"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
)

const (
	dockerSecretsDir = "/run/secrets"
	fileSecretsDir   = "/secrets"
)

// Credentials holds the OAuth2 client-credentials pair used to mint access
// tokens from the vendor's SSO endpoint.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

var placeholderValues = map[string]struct{}{
	"your_client_id":     {},
	"your_client_secret": {},
	"":                   {},
}

// LoadCredentials loads ARUBA_CLIENT_ID/ARUBA_CLIENT_SECRET with the
// priority order: Docker secrets mount -> alternate secrets path ->
// environment variable. Placeholder sentinel values (the ones shipped in
// the sample .env) are treated as absent.
func LoadCredentials() (Credentials, error) {
	clientID := loadSecret("ARUBA_CLIENT_ID", "aruba_client_id")
	clientSecret := loadSecret("ARUBA_CLIENT_SECRET", "aruba_client_secret")

	if clientID == "" || clientSecret == "" {
		return Credentials{}, gatewayerr.Config(
			"ARUBA_CLIENT_ID and ARUBA_CLIENT_SECRET must both be set via Docker secret, "+
				"file secret, or environment variable", nil)
	}

	return Credentials{ClientID: clientID, ClientSecret: clientSecret}, nil
}

// loadSecret reads envVar's value with priority: /run/secrets/<secretName>,
// then /secrets/<secretName>, then the environment variable itself.
// Placeholder sentinels at any source are treated as unset.
func loadSecret(envVar, secretName string) string {
	if v := readSecretFile(dockerSecretsDir, secretName); v != "" {
		return v
	}

	if v := readSecretFile(fileSecretsDir, secretName); v != "" {
		return v
	}

	return sanitize(os.Getenv(envVar))
}

func readSecretFile(dir, name string) string {
	data, err := os.ReadFile(dir + "/" + name)
	if err != nil {
		return ""
	}

	return sanitize(string(data))
}

func sanitize(v string) string {
	v = strings.TrimSpace(v)
	if _, placeholder := placeholderValues[v]; placeholder {
		return ""
	}

	return v
}
