package tele

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
)

type transportMqtt struct {
	log    *log2.Log
	m      mqtt.Client
	mopt   *mqtt.ClientOptions
	stopCh chan struct{}

	topicState  string
	topicPacket string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error {
	self.log = log
	self.stopCh = make(chan struct{})
	mqttLog := log.Clone(log2.LDebug)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if teleConfig.MqttLogDebug {
		mqtt.DEBUG = mqttLog
	}

	clientId := teleConfig.ClientID
	if clientId == "" {
		clientId = teleConfig.Callsign
	}
	prefix := teleConfig.TopicPrefix
	if prefix == "" {
		prefix = clientId
	}
	credFun := func() (string, string) {
		return clientId, teleConfig.MqttPassword
	}
	self.topicState = fmt.Sprintf("%s/w/state", prefix)
	self.topicPacket = fmt.Sprintf("%s/w/packet", prefix)

	networkTimeout := helpers.IntSecondDefault(teleConfig.NetworkTimeoutSec, defaultNetworkTimeout)
	if networkTimeout < 1*time.Second {
		networkTimeout = 1 * time.Second
	}
	connectTimeout := networkTimeout * 3
	keepaliveTimeout := helpers.IntSecondDefault(teleConfig.KeepaliveSec, networkTimeout/2)

	defaultHandler := func(_ mqtt.Client, msg mqtt.Message) {
		self.log.Errorf("unexpected mqtt message: %v", msg)
	}

	tlsconf := new(tls.Config)
	if teleConfig.TlsCaFile != "" {
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := ioutil.ReadFile(teleConfig.TlsCaFile)
		if err != nil {
			return errors.Annotate(err, "tls_ca_file")
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}
	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetAutoReconnect(true).
		SetBinaryWill(self.topicState, willPayload, 1, true).
		SetCleanSession(false).
		SetClientID(clientId).
		SetConnectTimeout(connectTimeout).
		SetCredentialsProvider(credFun).
		SetDefaultPublishHandler(defaultHandler).
		SetKeepAlive(keepaliveTimeout).
		SetMaxReconnectInterval(connectTimeout).
		SetMessageChannelDepth(1).
		SetOrderMatters(false).
		SetPingTimeout(networkTimeout).
		SetTLSConfig(tlsconf).
		SetWriteTimeout(networkTimeout)
	self.m = mqtt.NewClient(self.mopt)

	go self.online()
	return nil
}

func (self *transportMqtt) Close() {
	close(self.stopCh)
	self.m.Disconnect(uint(self.mopt.PingTimeout / time.Millisecond))
}

func (self *transportMqtt) SendState(payload []byte) bool {
	self.log.Debugf("tele sendstate payload=%x", payload)
	t := self.m.Publish(self.topicState, 1, true, payload)
	return self.tokenWait(t, "publish state") == nil
}

func (self *transportMqtt) SendPacket(payload []byte) bool {
	t := self.m.Publish(self.topicPacket, 1, false, payload)
	return self.tokenWait(t, "publish packet") == nil
}

func (self *transportMqtt) online() {
	for self.isRunning() {
		if self.m.IsConnected() {
			return
		}
		self.log.Debugf("tele connect broker=%v", self.mopt.Servers)
		t := self.m.Connect()
		if self.tokenWait(t, "connect") == nil {
			return // success path
		}
		time.Sleep(1 * time.Second)
	}
}

func (self *transportMqtt) isRunning() bool {
	select {
	case <-self.stopCh:
		return false
	default:
		return true
	}
}

func (self *transportMqtt) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(self.mopt.WriteTimeout) {
		err := errors.Timeoutf("%s", tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	return nil
}
