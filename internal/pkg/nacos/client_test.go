package nacos

import (
	"context"
	"errors"
	"testing"

	"github.com/nacos-group/nacos-sdk-go/v2/model"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNaming struct {
	registered   []vo.RegisterInstanceParam
	deregistered []vo.DeregisterInstanceParam
	instance     *model.Instance
	selectErr    error
	closed       bool
}

func (f *fakeNaming) RegisterInstance(p vo.RegisterInstanceParam) (bool, error) {
	f.registered = append(f.registered, p)
	return true, nil
}

func (f *fakeNaming) DeregisterInstance(p vo.DeregisterInstanceParam) (bool, error) {
	f.deregistered = append(f.deregistered, p)
	return true, nil
}

func (f *fakeNaming) SelectOneHealthyInstance(vo.SelectOneHealthInstanceParam) (*model.Instance, error) {
	return f.instance, f.selectErr
}

func (f *fakeNaming) CloseClient() { f.closed = true }

func TestParseServerConfigs(t *testing.T) {
	cfgs, err := ParseServerConfigs("10.0.0.1:8848, 10.0.0.2:8849")
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.Equal(t, "10.0.0.1", cfgs[0].IpAddr)
	assert.Equal(t, uint64(8849), cfgs[1].Port)

	for _, bad := range []string{"", "host", "host:port", "a:1:2", ":8848"} {
		_, err := ParseServerConfigs(bad)
		assert.Error(t, err, bad)
	}
}

func TestClient_RegisterAndDeregister(t *testing.T) {
	naming := &fakeNaming{}
	c := newClient(naming, "")

	require.NoError(t, c.RegisterServiceInstance("checkout-service", "10.0.0.5", 8080))
	require.NoError(t, c.DeregisterServiceInstance("checkout-service", "10.0.0.5", 8080))
	c.Close()

	require.Len(t, naming.registered, 1)
	assert.Equal(t, defaultGroup, naming.registered[0].GroupName)
	assert.True(t, naming.registered[0].Ephemeral)
	assert.Equal(t, uint64(8080), naming.registered[0].Port)
	require.Len(t, naming.deregistered, 1)
	assert.True(t, naming.closed)
}

func TestClient_Resolve(t *testing.T) {
	naming := &fakeNaming{instance: &model.Instance{Ip: "10.0.0.7", Port: 8090}}
	c := newClient(naming, "SHOP")

	url, err := c.Resolve(context.Background(), "payment-service")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.7:8090", url)

	naming.instance = nil
	_, err = c.Resolve(context.Background(), "payment-service")
	assert.Error(t, err)

	naming.selectErr = errors.New("no instances")
	_, err = c.Resolve(context.Background(), "payment-service")
	assert.ErrorIs(t, err, naming.selectErr)
}
