// Command portaudio lists the audio devices PortAudio can see and marks
// the default input, the one the tuner listens to.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/gordonklaus/portaudio"
)

func main() {
	inputs := flag.Bool("inputs", false, "list only devices with input channels")
	flag.Parse()

	err := portaudio.Initialize()
	if err != nil {
		log.Fatal(err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		log.Fatal(err)
	}

	// no default input is not fatal, the list is still useful
	in, err := portaudio.DefaultInputDevice()
	if err != nil {
		log.Println("no default input:", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tHOST API\tIN\tOUT\tRATE")

	for _, d := range devices {
		if *inputs && d.MaxInputChannels == 0 {
			continue
		}

		mark := ""
		if in != nil && d.Name == in.Name && d.HostApi == in.HostApi {
			mark = "*"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.0f\n", mark, d.Name, d.HostApi.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}

	w.Flush()
}
