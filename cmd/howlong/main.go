// Command howlong runs the body-language engagement kiosk.
package main

func main() {
	Execute()
}
