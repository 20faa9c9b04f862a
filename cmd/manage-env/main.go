package main

import (
	manageenv "github.com/dasanik2001/manage-env"
)

var Version = "dev"

func main() {
	manageenv.NewApp().Commands().RunMain("manage-env", Version)
}
