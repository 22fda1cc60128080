package e3631a

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/jgulick48/e3631a/internal/metrics"
	"github.com/jgulick48/e3631a/internal/models"
)

// DefaultTimeout is the response timeout used when the configuration does
// not name one. A session configured without any timeout is bounded to this
// value for each exchange so a call can never hang forever.
const DefaultTimeout = 15 * time.Second

// The E3631A's RS-232 framing is fixed by the hardware at one start bit and
// two stop bits. See the user's guide chapter 4.
const (
	serialStartBits = 1
	serialStopBits  = serial.Stop2
)

type port interface {
	io.ReadWriteCloser
}

type opener func(config *serial.Config) (port, error)

func openSerialPort(config *serial.Config) (port, error) {
	return serial.OpenPort(config)
}

// executor performs one write-then-read-line exchange per call. The port is
// opened with the session's fixed parameters for the duration of the call
// only and released on every path.
type executor struct {
	name         string
	serialConfig serial.Config
	timeout      time.Duration
	open         opener
}

func newExecutor(config models.SupplyConfig) (*executor, error) {
	parity, err := parityFromString(config.Parity)
	if err != nil {
		return nil, err
	}
	baud := config.Baud
	if baud == 0 {
		baud = 9600
	}
	dataBits := config.DataBits
	if dataBits == 0 {
		dataBits = 8
	}
	return &executor{
		name: config.Name,
		serialConfig: serial.Config{
			Name:     config.Device,
			Baud:     baud,
			Size:     byte(dataBits),
			Parity:   parity,
			StopBits: serialStopBits,
		},
		timeout: config.SerialTimeout(DefaultTimeout),
		open:    openSerialPort,
	}, nil
}

func parityFromString(value string) (serial.Parity, error) {
	switch strings.ToLower(value) {
	case "", "none":
		return serial.ParityNone, nil
	case "even":
		return serial.ParityEven, nil
	case "odd":
		return serial.ParityOdd, nil
	}
	return serial.ParityNone, &ConfigurationError{
		Reason: fmt.Sprintf("the parity must be either 'none', 'even' or 'odd', got %q", value),
	}
}

// Exchange writes one framed command and reads back one line. An empty read
// before the timeout is not an error at this layer, the supply acknowledges
// most commands silently.
func (e *executor) Exchange(command []byte) ([]byte, error) {
	start := time.Now()
	timeout := e.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	config := e.serialConfig
	config.ReadTimeout = timeout
	p, err := e.open(&config)
	if err != nil {
		e.countExchange("error")
		return nil, &TransportError{Op: "open", Err: err}
	}
	defer p.Close()
	if _, err := p.Write(command); err != nil {
		e.countExchange("error")
		return nil, &TransportError{Op: "write", Err: err}
	}
	response, err := readLine(p, time.Now().Add(timeout))
	if err != nil {
		e.countExchange("error")
		return nil, &TransportError{Op: "read", Err: err}
	}
	e.countExchange("success")
	metrics.SendTimingMetric("e3631a.exchange.duration", []string{metrics.FormatTag("name", e.name)}, start)
	return response, nil
}

func (e *executor) countExchange(result string) {
	exchangeCount.WithLabelValues(e.name, result).Inc()
	metrics.SendCountMetric("e3631a.exchange.count", []string{
		metrics.FormatTag("name", e.name),
		metrics.FormatTag("result", result),
	})
}

// readLine collects bytes until a newline arrives or the read times out.
// tarm reports an expired read timeout as a zero byte read, some platforms
// hand back io.EOF instead. Either way the line collected so far is the
// response.
func readLine(p port, deadline time.Time) ([]byte, error) {
	var line []byte
	buffer := make([]byte, 128)
	for {
		n, err := p.Read(buffer)
		if n > 0 {
			line = append(line, buffer[:n]...)
			if line[len(line)-1] == '\n' {
				return line, nil
			}
		}
		if err == io.EOF {
			return line, nil
		}
		if err != nil {
			return line, err
		}
		if n == 0 {
			return line, nil
		}
		if !time.Now().Before(deadline) {
			return line, nil
		}
	}
}
