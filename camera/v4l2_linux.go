//go:build linux && cgo

package camera

/*
#include <fcntl.h>
#include <stdlib.h>
#include <unistd.h>
#include <sys/ioctl.h>
#include <sys/mman.h>
#include <linux/videodev2.h>

// function wrappers that omit variadic parameters.

static int go_open(const char *path, int oflag) {
	return open(path, oflag);
}

static int go_ioctl(int filedes, unsigned long request, void *arg) {
	return ioctl(filedes, request, arg);
}
*/
import "C"

import (
	"context"
	"fmt"
	"image"
	"unsafe"
)

// V4L2 captures stills from a Video4Linux device. The device is opened
// for the duration of a single capture only, to leave it free for other
// users between photos.
type V4L2 struct {
	// Device defaults to /dev/video0.
	Device string
	Size   image.Point
	// Warmup is the number of frames discarded while the sensor settles
	// its exposure.
	Warmup int
}

const captureBuffers = 2

func (c *V4L2) Capture(ctx context.Context) (*image.Gray, error) {
	name := c.Device
	if name == "" {
		name = "/dev/video0"
	}
	dev, err := openDevice(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoImage, err)
	}
	defer C.close(dev.fd)
	img, err := dev.still(ctx, c.Size, c.Warmup)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoImage, err)
	}
	return img, nil
}

func (d *v4l2Dev) still(ctx context.Context, dims image.Point, warmup int) (*image.Gray, error) {
	caps, err := d.QueryCap()
	if err != nil {
		return nil, err
	}
	const need = C.V4L2_CAP_VIDEO_CAPTURE | C.V4L2_CAP_STREAMING
	got := caps.capabilities
	if got&C.V4L2_CAP_DEVICE_CAPS != 0 {
		got = caps.device_caps
	}
	if got&need != need {
		return nil, fmt.Errorf("missing camera capabilities (got %#x)", got)
	}

	// Only the luma plane of the YUV420 frame is used.
	wantFmt := C.struct_v4l2_pix_format{
		field:       C.V4L2_FIELD_NONE,
		width:       C.__u32(dims.X),
		height:      C.__u32(dims.Y),
		pixelformat: C.V4L2_PIX_FMT_YUV420,
	}
	if err := d.SFmtPix(C.V4L2_BUF_TYPE_VIDEO_CAPTURE, wantFmt); err != nil {
		return nil, err
	}
	gotFmt, err := d.GFmtPix(C.V4L2_BUF_TYPE_VIDEO_CAPTURE)
	if err != nil {
		return nil, err
	}
	if gotFmt.pixelformat != wantFmt.pixelformat {
		return nil, fmt.Errorf("format mismatch: got %+v, want %+v", gotFmt, wantFmt)
	}

	req := C.struct_v4l2_requestbuffers{
		count:  captureBuffers,
		_type:  C.V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: C.V4L2_MEMORY_MMAP,
	}
	if err := d.ReqBufs(&req); err != nil {
		return nil, err
	}
	if req.count <= 0 {
		return nil, fmt.Errorf("REQBUFS returned %d buffers", req.count)
	}
	var buffers [][]byte
	defer func() {
		for _, buf := range buffers {
			C.munmap(unsafe.Pointer(&buf[0]), C.size_t(len(buf)))
		}
	}()
	for i := 0; i < int(req.count); i++ {
		buf, err := d.QueryBuf(C.V4L2_BUF_TYPE_VIDEO_CAPTURE, C.__u32(i))
		if err != nil {
			return nil, err
		}
		off := *(*C.__u32)(unsafe.Pointer(&buf.m[0]))
		addr, err := C.mmap(nil, C.size_t(buf.length), C.PROT_READ, C.MAP_SHARED, d.fd, C.off_t(off))
		if addr == nil || uintptr(addr) == ^uintptr(0) {
			return nil, fmt.Errorf("mmap of v4l2_buffer: %v", err)
		}
		buffers = append(buffers, unsafe.Slice((*byte)(addr), buf.length))
		if err := d.QBuf(buf); err != nil {
			return nil, err
		}
	}

	if err := d.StreamOn(C.V4L2_BUF_TYPE_VIDEO_CAPTURE); err != nil {
		return nil, err
	}
	defer d.StreamOff(C.V4L2_BUF_TYPE_VIDEO_CAPTURE)
	w, h := int(gotFmt.width), int(gotFmt.height)
	stride := int(gotFmt.bytesperline)
	for frame := 0; ; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		deq, err := d.DQBuf(C.V4L2_BUF_TYPE_VIDEO_CAPTURE, C.V4L2_MEMORY_MMAP)
		if err != nil {
			return nil, err
		}
		if deq.flags&C.V4L2_BUF_FLAG_ERROR != 0 || frame < warmup {
			frame++
			if err := d.QBuf(deq); err != nil {
				return nil, err
			}
			continue
		}
		buf := buffers[deq.index]
		if len(buf) < stride*h {
			return nil, fmt.Errorf("short frame: %d bytes for %dx%d", len(buf), w, h)
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w], buf[y*stride:])
		}
		return img, nil
	}
}

type v4l2Dev struct {
	fd C.int
}

func openDevice(name string) (*v4l2Dev, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	fd, err := C.go_open(cname, C.O_RDWR|C.O_CLOEXEC)
	if fd == -1 {
		return nil, fmt.Errorf("open %s: %v", name, err)
	}
	return &v4l2Dev{fd: fd}, nil
}

func (d *v4l2Dev) ioctl(name string, req uintptr, arg unsafe.Pointer) error {
	if res, err := C.go_ioctl(d.fd, C.ulong(req), arg); res == -1 {
		return fmt.Errorf("v4l2: %s: %v", name, err)
	}
	return nil
}

func (d *v4l2Dev) QueryCap() (C.struct_v4l2_capability, error) {
	var caps C.struct_v4l2_capability
	err := d.ioctl("VIDIOC_QUERYCAP", C.VIDIOC_QUERYCAP, unsafe.Pointer(&caps))
	return caps, err
}

func (d *v4l2Dev) GFmtPix(_type C.__u32) (C.struct_v4l2_pix_format, error) {
	format := C.struct_v4l2_format{
		_type: _type,
	}
	err := d.ioctl("VIDIOC_G_FMT", C.VIDIOC_G_FMT, unsafe.Pointer(&format))
	pix := (*C.struct_v4l2_pix_format)(unsafe.Pointer(&format.fmt))
	return *pix, err
}

func (d *v4l2Dev) SFmtPix(_type C.__u32, f C.struct_v4l2_pix_format) error {
	format := C.struct_v4l2_format{
		_type: _type,
	}
	pix := (*C.struct_v4l2_pix_format)(unsafe.Pointer(&format.fmt))
	*pix = f
	return d.ioctl("VIDIOC_S_FMT", C.VIDIOC_S_FMT, unsafe.Pointer(&format))
}

func (d *v4l2Dev) ReqBufs(req *C.struct_v4l2_requestbuffers) error {
	return d.ioctl("VIDIOC_REQBUFS", C.VIDIOC_REQBUFS, unsafe.Pointer(req))
}

func (d *v4l2Dev) QueryBuf(_type, idx C.__u32) (C.struct_v4l2_buffer, error) {
	buf := C.struct_v4l2_buffer{
		_type:  _type,
		index:  idx,
		memory: C.V4L2_MEMORY_MMAP,
	}
	err := d.ioctl("VIDIOC_QUERYBUF", C.VIDIOC_QUERYBUF, unsafe.Pointer(&buf))
	return buf, err
}

func (d *v4l2Dev) QBuf(buf C.struct_v4l2_buffer) error {
	return d.ioctl("VIDIOC_QBUF", C.VIDIOC_QBUF, unsafe.Pointer(&buf))
}

func (d *v4l2Dev) StreamOn(_type uint32) error {
	return d.ioctl("VIDIOC_STREAMON", C.VIDIOC_STREAMON, unsafe.Pointer(&_type))
}

func (d *v4l2Dev) StreamOff(_type uint32) error {
	return d.ioctl("VIDIOC_STREAMOFF", C.VIDIOC_STREAMOFF, unsafe.Pointer(&_type))
}

func (d *v4l2Dev) DQBuf(_type, mem C.__u32) (C.struct_v4l2_buffer, error) {
	deq := C.struct_v4l2_buffer{
		_type:  _type,
		memory: mem,
	}
	err := d.ioctl("VIDIOC_DQBUF", C.VIDIOC_DQBUF, unsafe.Pointer(&deq))
	return deq, err
}
