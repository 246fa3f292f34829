// Package logger provides a configured slog factory and attribute helpers
// for the entitlement engine's structured logging.
//
// Basic usage:
//
//	log := logger.New(logger.WithDevelopment("entitlement"))
//	log.Info("plan changed", logger.PlanID("premium_monthly"))
//
// Components never depend on the logger's return values; it is a sink only.
package logger
