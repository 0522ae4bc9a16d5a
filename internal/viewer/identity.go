// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package viewer

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"

	"github.com/google/uuid"
)

// observerID derives a stable identifier for an observer connection. An
// explicit header wins so dashboards can name themselves; otherwise the
// remote host is hashed so reconnects from the same viewer keep one id.
func observerID(r *http.Request) string {
	if id := r.Header.Get("X-Capture-Client-ID"); id != "" {
		return id
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return uuid.New().String()
	}

	sum := sha256.Sum256([]byte(host))
	return hex.EncodeToString(sum[:6])
}
