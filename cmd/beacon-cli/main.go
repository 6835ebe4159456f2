// Host side console for beacon serial link.
package main

import (
	"encoding/hex"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/hb9gl/tlmbeacon/hardware/uart"
	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/helpers/cli"
	"github.com/hb9gl/tlmbeacon/internal/hostlink"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
)

const usage = `syntax: commands separated by whitespace
- keepalive   send keepalive
- link=UE     send link status, U,E are 0|1 uplink, echolink
- query       send status query and print response
- reboot      ask beacon to reboot
- sN          pause N milliseconds
- loop=N      repeat preceding commands of the line N times total
- log=yes|no  enable|disable hex dump of frames
`

type console struct {
	log     *log2.Log
	port    *uart.Port
	timeout time.Duration
	dump    bool
}

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	device := cmdline.String("device", "/dev/ttyUSB0", "")
	baud := cmdline.Int("baud", 9600, "")
	timeout := cmdline.Duration("timeout", 2*time.Second, "status response timeout")
	cmdline.Parse(os.Args[1:])

	log := log2.NewStderr(log2.LDebug)
	log.SetFlags(log2.LInteractiveFlags)

	port, err := uart.Open(*device, *baud)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	c := &console{log: log, port: port, timeout: *timeout}
	cli.MainLoop("beacon-cli", c.exec, complete, func() { _ = port.Close() })
}

func complete(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "help"},
		{Text: "keepalive", Description: "send keepalive"},
		{Text: "link=11", Description: "uplink and echolink up"},
		{Text: "link=00", Description: "both links down"},
		{Text: "query", Description: "status query"},
		{Text: "reboot", Description: "remote reboot"},
		{Text: "log=yes", Description: "hex dump frames"},
		{Text: "log=no"},
	}
	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}

func (c *console) exec(line string) {
	words := strings.Fields(line)
	iteration := uint64(1)
wordLoop:
	for _, word := range words {
		c.log.Debugf("(%d)%s", iteration, word)
		switch {
		case word == "help":
			c.log.Infof(usage)

		case word == "keepalive":
			c.send(hostlink.Request(hostlink.CodeKeepAlive))

		case word == "reboot":
			c.send(hostlink.Request(hostlink.CodeReboot))

		case word == "query":
			if !c.send(hostlink.Request(hostlink.CodeStatusQuery)) {
				break
			}
			r, err := c.receive()
			if err != nil {
				c.log.Errorf("query err=%v", err)
				break
			}
			c.log.Infof("status %s", r.String())

		case word == "log=yes":
			c.dump = true
		case word == "log=no":
			c.dump = false

		case strings.HasPrefix(word, "link="):
			ls, err := parseLink(word[5:])
			if err != nil {
				c.log.Errorf("token=%s err=%v", word, err)
				break
			}
			c.send(ls.Frame())

		case strings.HasPrefix(word, "loop="):
			if i, err := strconv.ParseUint(word[5:], 10, 32); err != nil {
				c.log.Errorf("token=%s err=%v", word, err)
				return
			} else {
				iteration++
				if iteration <= i {
					goto wordLoop
				}
			}

		case word[0] == 's':
			if i, err := strconv.ParseUint(word[1:], 10, 32); err != nil {
				c.log.Errorf("token=%s err=%v", word, err)
			} else {
				time.Sleep(time.Duration(i) * time.Millisecond)
			}

		default:
			c.log.Errorf("unknown token=%s, try help", word)
		}
	}
}

func (c *console) send(b []byte) bool {
	if c.dump {
		c.log.Debugf("send %s", hex.EncodeToString(b))
	}
	if err := helpers.WriteAll(c.port, b); err != nil {
		c.log.Errorf("send err=%v", err)
		return false
	}
	return true
}

func (c *console) receive() (hostlink.StatusResponse, error) {
	b := make([]byte, hostlink.CodeSize+hostlink.StatusResponseSize)
	if err := c.port.ReadFull(b, c.timeout); err != nil {
		return hostlink.StatusResponse{}, errors.Annotate(err, "receive")
	}
	if c.dump {
		c.log.Debugf("recv %s", hex.EncodeToString(b))
	}
	return hostlink.ParseResponse(b)
}

func parseLink(s string) (hostlink.LinkStatus, error) {
	if len(s) != 2 {
		return hostlink.LinkStatus{}, errors.NotValidf("link=%s expected two digits", s)
	}
	digit := func(b byte) (bool, error) {
		switch b {
		case '0':
			return false, nil
		case '1':
			return true, nil
		}
		return false, errors.NotValidf("link digit=%c", b)
	}
	u, err := digit(s[0])
	if err != nil {
		return hostlink.LinkStatus{}, err
	}
	e, err := digit(s[1])
	if err != nil {
		return hostlink.LinkStatus{}, err
	}
	return hostlink.LinkStatus{Uplink: u, Echolink: e}, nil
}
