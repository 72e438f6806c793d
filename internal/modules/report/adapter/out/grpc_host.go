package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"retort/internal/modules/report/adapter/out/rpc"
	"retort/internal/modules/report/domain"
	reportout "retort/internal/modules/report/port/out"
)

const (
	defaultStartTimeout  = 3 * time.Second
	defaultCallTimeout   = 5 * time.Second
	defaultRenderTimeout = 20 * time.Second
)

type GRPCHost struct {
	logger hclog.Logger
}

// NewGRPCHost returns a host whose plugin subprocess output goes to logger.
// A nil logger discards it.
func NewGRPCHost(logger hclog.Logger) reportout.PluginHost {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GRPCHost{logger: logger}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	client, closeFn, err := h.connect(manifest, defaultStartTimeout)
	if err != nil {
		return err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()
	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return fmt.Errorf("get metadata: %w", err)
	}
	if err := domain.CheckAPIVersion(meta.Version); err != nil {
		return err
	}
	if meta.Name != manifest.Name {
		return fmt.Errorf("plugin reports name %q, manifest says %q", meta.Name, manifest.Name)
	}
	return nil
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	client, closeFn, err := h.connect(manifest, defaultStartTimeout)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()

	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	return domain.Metadata{Name: meta.Name, Version: meta.Version, Formats: meta.Formats}, nil
}

func (h *GRPCHost) Render(ctx context.Context, manifest domain.Manifest, format string, input domain.Input) (domain.Artifact, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("encode report input: %w", err)
	}
	client, closeFn, err := h.connect(manifest, defaultStartTimeout)
	if err != nil {
		return domain.Artifact{}, err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx, defaultRenderTimeout)
	defer cancel()
	response, err := client.Render(callCtx, &rpc.RenderRequest{Format: format, InputJSON: string(payload)})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.Artifact{}, fmt.Errorf("%w: %s render %s", domain.ErrPluginTimeout, manifest.Name, format)
		}
		return domain.Artifact{}, fmt.Errorf("render: %w", err)
	}
	return domain.Artifact{
		Format:      format,
		Extension:   response.Extension,
		ContentType: response.ContentType,
		Body:        response.Body,
	}, nil
}

func (h *GRPCHost) connect(manifest domain.Manifest, startTimeout time.Duration) (rpc.ExporterClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  rpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          rpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     startTimeout,
		Logger:           h.logger.Named(manifest.Name),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(rpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(rpc.ExporterClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("plugin rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func (h *GRPCHost) callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
