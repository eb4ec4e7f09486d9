// Package services contains the core business logic: connector lifecycle,
// permission reconciliation, sync orchestration, webhook routing, chat-bot
// handling and background scheduling. Services depend only on ports, never
// on adapter packages.
package services
