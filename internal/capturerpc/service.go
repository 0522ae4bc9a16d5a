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

const ServiceName = "capture.v1.CaptureService"

const (
	methodSubmitFrame  = "/" + ServiceName + "/SubmitFrame"
	methodStreamFrames = "/" + ServiceName + "/StreamFrames"
	methodGetStatus    = "/" + ServiceName + "/GetStatus"
)

// CaptureServer is implemented by the ingestion service.
type CaptureServer interface {
	SubmitFrame(ctx context.Context, frame *core.CaptureFrame) (*core.FrameAck, error)
	StreamFrames(stream FrameStream) error
	GetStatus(ctx context.Context, req *core.StatusRequest) (*core.ServerStatus, error)
}

// FrameStream is the server view of the bidirectional frame stream.
type FrameStream interface {
	Recv() (*core.CaptureFrame, error)
	Send(ack *core.FrameAck) error
	Context() context.Context
}

func RegisterCaptureServer(s *grpc.Server, srv CaptureServer) {
	s.RegisterService(&captureServiceDesc, srv)
}

var captureServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CaptureServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitFrame", Handler: submitFrameHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamFrames",
			Handler:       streamFramesHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "capture/v1/capture.json",
}

func submitFrameHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(core.CaptureFrame)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CaptureServer).SubmitFrame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSubmitFrame}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CaptureServer).SubmitFrame(ctx, req.(*core.CaptureFrame))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(core.StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CaptureServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetStatus}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CaptureServer).GetStatus(ctx, req.(*core.StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func streamFramesHandler(srv any, stream grpc.ServerStream) error {
	return srv.(CaptureServer).StreamFrames(&frameServerStream{stream})
}

type frameServerStream struct {
	grpc.ServerStream
}

func (s *frameServerStream) Recv() (*core.CaptureFrame, error) {
	f := new(core.CaptureFrame)
	if err := s.RecvMsg(f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *frameServerStream) Send(ack *core.FrameAck) error {
	return s.SendMsg(ack)
}
