package e3631a

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	commandIdentify       = "*IDN?"
	commandVersion        = "SYSTem:VERSion?"
	commandRemote         = "SYSTem:REMote"
	commandLocal          = "SYSTem:LOCal"
	commandBeep           = "SYSTem:BEEPer:IMMediate"
	commandSelectedOutput = "INSTrument:SELect?"
)

// Setting is one field of an APPLy command: a numeric setpoint, one of the
// DEF/MIN/MAX tokens, or omitted entirely (the zero value).
type Setting struct {
	token   string
	value   float64
	numeric bool
	present bool
}

// Number makes a numeric setting, rendered with six decimal places.
func Number(value float64) Setting {
	return Setting{value: value, numeric: true, present: true}
}

// Token makes a DEF, MIN or MAX setting. Case does not matter.
func Token(token string) Setting {
	return Setting{token: strings.ToUpper(token), present: true}
}

// NoSetting leaves a field of the APPLy command unspecified.
func NoSetting() Setting {
	return Setting{}
}

func (s Setting) render() (string, error) {
	if !s.present {
		return "", nil
	}
	if s.numeric {
		return strconv.FormatFloat(s.value, 'f', 6, 64), nil
	}
	switch s.token {
	case "", "DEF", "MIN", "MAX":
		return s.token, nil
	}
	return "", fmt.Errorf("invalid APPLy token %q, must be DEF, MIN or MAX", s.token)
}

func normalizeChannel(channel Channel) (Channel, error) {
	channel = Channel(strings.ToUpper(string(channel)))
	switch channel {
	case P6V, P25V, N25V:
		return channel, nil
	}
	return channel, &InvalidChannelError{Channel: string(channel)}
}

// ApplyCommand builds the set form of the APPLy command. Both setpoint
// fields are rendered independently, so either can be left unspecified.
func ApplyCommand(channel Channel, voltage, current Setting) (string, error) {
	channel, err := normalizeChannel(channel)
	if err != nil {
		return "", err
	}
	voltageText, err := voltage.render()
	if err != nil {
		return "", err
	}
	currentText, err := current.render()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("APPLy %s,%s,%s", channel, voltageText, currentText), nil
}

// ApplyQuery builds the request form of the APPLy command.
func ApplyQuery(channel Channel) (string, error) {
	channel, err := normalizeChannel(channel)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("APPLy? %s", channel), nil
}

// ParseApplyResponse splits the supply's reply to an APPLy? query into the
// voltage and current setpoints. The supply wraps each field in double
// quotes, which are stripped before parsing.
func ParseApplyResponse(text string) (float64, float64, error) {
	fields := strings.Split(text, ",")
	if len(fields) != 2 {
		return 0, 0, &MalformedResponseError{Response: text}
	}
	voltage, err := strconv.ParseFloat(strings.Trim(strings.TrimSpace(fields[0]), `"`), 64)
	if err != nil {
		return 0, 0, &MalformedResponseError{Response: text}
	}
	current, err := strconv.ParseFloat(strings.Trim(strings.TrimSpace(fields[1]), `"`), 64)
	if err != nil {
		return 0, 0, &MalformedResponseError{Response: text}
	}
	return voltage, current, nil
}

// Frame appends the newline the supply needs to recognize a command and
// turns it into transport bytes.
func Frame(command string) []byte {
	return []byte(command + "\n")
}

// Deframe turns a raw response into text, stripping the trailing CRLF the
// supply usually appends. Not every transport hands the suffix back, so a
// missing one is not an error.
func Deframe(raw []byte) string {
	return strings.TrimSuffix(string(raw), "\r\n")
}
