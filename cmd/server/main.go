package main

import (
	_ "eventplanner/docs"

	"eventplanner/cmd/server/cmd"
)

// @title Event Planner API
// @version 1.0
// @description Events, attendance and live membership notifications.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cmd.Execute()
}
