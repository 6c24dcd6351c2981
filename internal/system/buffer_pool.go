package system

import (
	"image"
	"sync"
)

// ImagePool reuses frame and mask buffers across samples to keep GC
// pressure down. Pools are keyed by size.
type ImagePool struct {
	rgba map[image.Rectangle]*sync.Pool
	gray map[image.Rectangle]*sync.Pool
	mu   sync.RWMutex
}

var globalPool = NewImagePool()

func NewImagePool() *ImagePool {
	return &ImagePool{
		rgba: make(map[image.Rectangle]*sync.Pool),
		gray: make(map[image.Rectangle]*sync.Pool),
	}
}

// GetImage returns an *image.RGBA from the global pool or allocates one.
// The buffer is not cleared.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.GetRGBA(rect)
}

// PutImage returns the buffer to the global pool.
func PutImage(img *image.RGBA) {
	globalPool.PutRGBA(img)
}

// GetMask returns an *image.Gray from the global pool or allocates one.
func GetMask(rect image.Rectangle) *image.Gray {
	return globalPool.GetGray(rect)
}

// PutMask returns the mask to the global pool.
func PutMask(img *image.Gray) {
	globalPool.PutGray(img)
}

func (p *ImagePool) GetRGBA(rect image.Rectangle) *image.RGBA {
	pool := p.pool(p.rgba, rect, func() any { return image.NewRGBA(rect) })
	return pool.Get().(*image.RGBA)
}

func (p *ImagePool) PutRGBA(img *image.RGBA) {
	if img == nil {
		return
	}
	if pool := p.lookup(p.rgba, img.Rect); pool != nil {
		pool.Put(img)
	}
}

func (p *ImagePool) GetGray(rect image.Rectangle) *image.Gray {
	pool := p.pool(p.gray, rect, func() any { return image.NewGray(rect) })
	return pool.Get().(*image.Gray)
}

func (p *ImagePool) PutGray(img *image.Gray) {
	if img == nil {
		return
	}
	if pool := p.lookup(p.gray, img.Rect); pool != nil {
		pool.Put(img)
	}
}

func (p *ImagePool) lookup(pools map[image.Rectangle]*sync.Pool, rect image.Rectangle) *sync.Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return pools[rect]
}

func (p *ImagePool) pool(pools map[image.Rectangle]*sync.Pool, rect image.Rectangle, newFn func() any) *sync.Pool {
	if pool := p.lookup(pools, rect); pool != nil {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double check
	pool, exists := pools[rect]
	if !exists {
		pool = &sync.Pool{New: newFn}
		pools[rect] = pool
	}
	return pool
}
