package pencil

// PartitionMap splits the index range [0, MaxIndex) into ParallelDegree
// contiguous buckets whose sizes differ by at most one.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of each bucket
}

func NewPartitionMap(parallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: parallelDegree,
		Partitions:     make([][2]int, parallelDegree),
	}
	for n := 0; n < parallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// Split1D returns the bucket of rank; the remainder is spread over the
// first buckets.
func (pm *PartitionMap) Split1D(rank int) (bucket [2]int) {
	var (
		nPart     = pm.MaxIndex / pm.ParallelDegree
		remainder = pm.MaxIndex % pm.ParallelDegree
		startAdd  = remainder
		endAdd    int
	)
	if rank < remainder {
		startAdd, endAdd = rank, 1
	}
	bucket[0] = rank*nPart + startAdd
	bucket[1] = bucket[0] + nPart + endAdd
	return
}

// GetBucket finds the bucket holding global index k, or -1.
func (pm *PartitionMap) GetBucket(k int) (bucketNum, min, max int) {
	if k < 0 || k >= pm.MaxIndex {
		return -1, 0, 0
	}
	// Initial guess, then walk to the owning bucket
	bucketNum = pm.ParallelDegree * k / pm.MaxIndex
	for !(pm.Partitions[bucketNum][0] <= k && pm.Partitions[bucketNum][1] > k) {
		if pm.Partitions[bucketNum][0] > k {
			bucketNum--
		} else {
			bucketNum++
		}
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) int {
	return pm.Partitions[bn][1] - pm.Partitions[bn][0]
}

func (pm *PartitionMap) GetGlobalK(kLocal, bn int) int {
	return pm.Partitions[bn][0] + kLocal
}
