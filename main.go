// Package main is the entry point of eventtracker, a static checker for the
// persistent event bindings of Unity projects.
package main

import "eventtracker/cmd"

func main() {
	cmd.Execute()
}
