package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgulick48/e3631a/internal/e3631a"
	"github.com/jgulick48/e3631a/internal/models"
)

// Client bridges the supply's setpoints onto MQTT. It publishes the mirrored
// values on state topics, applies writes arriving on the matching /set
// topics through the driver, and announces the sensors to Home Assistant.
type Client interface {
	Close()
	Connect()
	IsEnabled() bool
}

func NewClient(config models.MQTTConfiguration, supply e3631a.Client) Client {
	if config.Host != "" {
		return &client{
			config:   config,
			supply:   supply,
			done:     make(chan bool),
			messages: make(chan mqtt.Message),
		}
	}
	return &client{config: config, supply: supply}
}

type client struct {
	config     models.MQTTConfiguration
	supply     e3631a.Client
	done       chan bool
	mqttClient mqtt.Client
	messages   chan mqtt.Message
}

func (c *client) Close() {
	// A disabled client never started a publish loop, there is nothing
	// listening on done.
	if c.done == nil {
		return
	}
	c.done <- true
}

func (c *client) IsEnabled() bool {
	return c.config.Host != ""
}

func (c *client) Connect() {
	go func() {
		for message := range c.messages {
			if err := c.ProcessData(message.Topic(), message.Payload()); err != nil {
				log.Printf("Error processing message from topic %s: %s", message.Topic(), err)
			}
		}
	}()
	log.Printf("Connecting to %s", fmt.Sprintf("tcp://%s:%d", c.config.Host, c.config.Port))
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", c.config.Host, c.config.Port))
	opts.SetClientID("e3631a_mqtt_client")
	opts.SetDefaultPublishHandler(c.messagePubHandler)
	if c.config.Username != "" && c.config.Password != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = c.connectLostHandler
	c.mqttClient = mqtt.NewClient(opts)
	if token := c.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("Error connecting to mqtt client: %s", token.Error())
	}
	c.sub()
	c.registerSensors()
	defer c.mqttClient.Disconnect(250)
	c.publishLoop()
}

func (c *client) publishLoop() {
	interval := c.config.Interval.Duration
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.publishSetpoints()
		}
	}
}

func (c *client) publishSetpoints() {
	for _, channel := range e3631a.Channels {
		c.publishChannel(channel)
	}
}

func (c *client) publishChannel(channel e3631a.Channel) {
	if c.mqttClient == nil {
		return
	}
	voltage, current := c.supply.Setpoints(channel)
	c.publishValue(channel, e3631a.Voltage, voltage)
	c.publishValue(channel, e3631a.Current, current)
}

func (c *client) publishValue(channel e3631a.Channel, kind e3631a.Kind, value float64) {
	token := c.mqttClient.Publish(c.stateTopic(channel, kind), 0, false, fmt.Sprintf("{\"value\": %v}", value))
	token.Wait()
	if token.Error() != nil {
		log.Printf("Error publishing %s %s: %s", channel, kind, token.Error())
	}
}

func (c *client) stateTopic(channel e3631a.Channel, kind e3631a.Kind) string {
	return fmt.Sprintf("e3631a/%s/%s/%s", c.config.DeviceID, channel, kind)
}

func (c *client) messagePubHandler(client mqtt.Client, msg mqtt.Message) {
	c.messages <- msg
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Println("Connected")
}

func (c *client) connectLostHandler(client mqtt.Client, err error) {
	log.Printf("Connect lost: %v", err)
	c.done <- true
}

func (c *client) sub() {
	topic := fmt.Sprintf("e3631a/%s/+/+/set", c.config.DeviceID)
	token := c.mqttClient.Subscribe(topic, 1, nil)
	token.Wait()
	log.Printf("Subscribed to topic: %s", topic)
}

// ProcessData applies a setpoint write arriving on a /set command topic and
// republishes the channel's mirrored state. Limit violations come back from
// the driver and are surfaced to the log, nothing reaches the supply.
func (c *client) ProcessData(topic string, message []byte) error {
	var payload models.Message
	if err := json.Unmarshal(message, &payload); err != nil {
		return err
	}
	if !payload.Value.Valid {
		return nil
	}
	segments := strings.Split(topic, "/")
	if len(segments) != 5 || segments[4] != "set" {
		return nil
	}
	channel := e3631a.Channel(strings.ToUpper(segments[2]))
	var kind e3631a.Kind
	switch segments[3] {
	case "voltage":
		kind = e3631a.Voltage
	case "current":
		kind = e3631a.Current
	default:
		return fmt.Errorf("unknown setpoint kind %q in topic %s", segments[3], topic)
	}
	if err := c.supply.Set(channel, kind, payload.Value.Float64); err != nil {
		return err
	}
	c.publishChannel(channel)
	return nil
}

func (c *client) registerSensors() {
	for _, channel := range e3631a.Channels {
		c.registerSensor(channel, e3631a.Voltage, "V")
		c.registerSensor(channel, e3631a.Current, "A")
	}
}

func (c *client) registerSensor(channel e3631a.Channel, kind e3631a.Kind, unit string) {
	uniqueID := fmt.Sprintf("%s_%s_%s", c.config.DeviceID, channel, kind)
	sensor := SensorJSON{
		UniqueId:          uniqueID,
		Name:              fmt.Sprintf("%s %s %s", c.config.DeviceID, channel, kind),
		StateTopic:        c.stateTopic(channel, kind),
		StateClass:        "measurement",
		DeviceClass:       string(kind),
		ValueTemplate:     "{{ value_json.value }}",
		UnitOfMeasurement: unit,
		Device: SensorDevice{
			Manufacturer: "Keysight",
			Name:         c.config.DeviceID,
			Identifiers:  []string{c.config.DeviceID},
		},
	}
	payload, err := json.Marshal(sensor)
	if err != nil {
		log.Printf("Error building sensor config for %s %s: %s", channel, kind, err)
		return
	}
	token := c.mqttClient.Publish(fmt.Sprintf("homeassistant/sensor/%s/config", uniqueID), 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("Error registering sensor %s: %s", uniqueID, token.Error())
	}
}
