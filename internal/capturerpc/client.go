// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package capturerpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

// Client is the device-side view of the capture service. It is used by the
// device simulator and by integration tests.
type Client struct {
	cc *grpc.ClientConn
}

func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

func (c *Client) SubmitFrame(ctx context.Context, frame *core.CaptureFrame) (*core.FrameAck, error) {
	ack := new(core.FrameAck)
	if err := c.cc.Invoke(ctx, methodSubmitFrame, frame, ack, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, err
	}
	return ack, nil
}

func (c *Client) GetStatus(ctx context.Context) (*core.ServerStatus, error) {
	status := new(core.ServerStatus)
	if err := c.cc.Invoke(ctx, methodGetStatus, &core.StatusRequest{}, status, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, err
	}
	return status, nil
}

// ClientFrameStream is the device side of the bidirectional frame stream.
type ClientFrameStream struct {
	grpc.ClientStream
}

func (c *Client) StreamFrames(ctx context.Context) (*ClientFrameStream, error) {
	stream, err := c.cc.NewStream(ctx, &captureServiceDesc.Streams[0], methodStreamFrames, grpc.ForceCodec(jsonCodec{}))
	if err != nil {
		return nil, err
	}
	return &ClientFrameStream{stream}, nil
}

func (s *ClientFrameStream) Send(frame *core.CaptureFrame) error {
	return s.SendMsg(frame)
}

func (s *ClientFrameStream) Recv() (*core.FrameAck, error) {
	ack := new(core.FrameAck)
	if err := s.RecvMsg(ack); err != nil {
		return nil, err
	}
	return ack, nil
}
