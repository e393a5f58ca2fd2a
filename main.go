/*
Copyright © 2026 JACOB ARTHURS
*/
package main

import "github.com/jacobarthurs/pgreview/cmd"

func main() {
	cmd.Execute()
}
