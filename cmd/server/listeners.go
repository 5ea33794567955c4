// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/aws-go-face-index/internal/cloud"
)

// SetupListeners attaches processor to every configured queue listener and
// starts them. Listeners stop when ctx is cancelled.
func SetupListeners(ctx context.Context, clients *cloud.ServiceClients, processor cloud.NotificationProcessor) {
	if len(clients.SQSListeners) == 0 {
		slog.Info("no queue subscriptions configured; notifications are accepted over HTTP only")
		return
	}
	for name, listener := range clients.SQSListeners {
		slog.Info("starting queue listener", "subscription", name)
		listener.SetProcessor(processor)
		listener.Listen(ctx)
	}
}
