// Command mukha drives the pointer and desktop actions from facial gestures.
package main

func main() {
	Execute()
}
