package core

import (
	"github.com/pkg/errors"
	capnp "zombiezen.com/go/capnproto2"
)

// NOTE: Tests are in sample_store_test.go

// A sample page is a root struct whose only pointer is a UInt64 list.
var samplePageSize = capnp.ObjectSize{DataSize: 0, PointerCount: 1}

func SamplePageToBytes(samples []uint64) ([]byte, error) {
	msg, seg, err := capnp.NewMessage(capnp.SingleSegment(nil))
	if err != nil {
		return nil, errors.Wrap(err, "new page message")
	}
	root, err := capnp.NewRootStruct(seg, samplePageSize)
	if err != nil {
		return nil, errors.Wrap(err, "new page root")
	}
	list, err := capnp.NewUInt64List(seg, int32(len(samples)))
	if err != nil {
		return nil, errors.Wrap(err, "new page list")
	}
	for i, sample := range samples {
		list.Set(i, sample)
	}
	if err := root.SetPtr(0, list.List.ToPtr()); err != nil {
		return nil, errors.Wrap(err, "set page list")
	}
	return msg.Marshal()
}

func BytesToSamplePage(buf []byte) ([]uint64, error) {
	msg, err := capnp.Unmarshal(buf)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt sample page")
	}
	rootPtr, err := msg.RootPtr()
	if err != nil {
		return nil, errors.Wrap(err, "corrupt sample page")
	}
	listPtr, err := rootPtr.Struct().Ptr(0)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt sample page")
	}
	list := capnp.UInt64List{List: listPtr.List()}
	samples := make([]uint64, list.Len())
	for i := range samples {
		samples[i] = list.At(i)
	}
	return samples, nil
}
