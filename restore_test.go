package flink_test

import (
	"fmt"

	"github.com/haozhongli/flink"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Restore", func() {
	It("should restore an empty registry from no artifacts", func() {
		restored, err := restoreBackend(0, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.NumRegisteredStates()).To(Equal(0))
	})

	It("should skip nil artifact entries", func() {
		restored, err := restoreBackend(0, 7, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.NumRegisteredStates()).To(Equal(0))
	})

	It("should restore a snapshotted value", func() {
		backend := newTestBackend(0, 7)
		wc := backend.StateTable("wc", flink.StringCodec{}, flink.Int64Codec{})
		Expect(wc.Put(2, "ns", "hello", int64(3))).To(Succeed())

		snap, err := takeSnapshot(backend)
		Expect(err).NotTo(HaveOccurred())

		restored, err := restoreBackend(0, 7, snap)
		Expect(err).NotTo(HaveOccurred())

		table := restored.StateTable("wc", flink.StringCodec{}, flink.Int64Codec{})
		v, ok, err := table.Get(2, "ns", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int64(3)))

		_, ok, err = table.Get(2, "ns", "other")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should round-trip a populated registry", func() {
		backend := newTestBackend(0, 7)
		Expect(seedBackend(backend)).To(Succeed())

		snap, err := takeSnapshot(backend)
		Expect(err).NotTo(HaveOccurred())

		restored, err := restoreBackend(0, 7, snap)
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.NumRegisteredStates()).To(Equal(2))

		counts := restored.StateTable("counts", flink.StringCodec{}, flink.Int64Codec{})
		for kg := 0; kg <= 7; kg++ {
			for i := 0; i < 3; i++ {
				v, ok, err := counts.Get(kg, "ns", fmt.Sprintf("key-%d-%d", kg, i))
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue(), "for key group %d", kg)
				Expect(v).To(Equal(int64(kg*10 + i)))
			}
		}

		sparse := restored.StateTable("sparse", flink.StringCodec{}, flink.BytesCodec{})
		v, ok, err := sparse.Get(0, "ns", "only")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal([]byte("payload")))
	})

	It("should preserve absent vs empty-but-present slots", func() {
		backend := newTestBackend(0, 7)
		words := backend.StateTable("words", flink.StringCodec{}, flink.Int64Codec{})
		Expect(words.SetMapping(3, flink.NamespaceMap{})).To(Succeed())

		snap, err := takeSnapshot(backend)
		Expect(err).NotTo(HaveOccurred())

		restored, err := restoreBackend(0, 7, snap)
		Expect(err).NotTo(HaveOccurred())

		table := restored.StateTable("words", flink.StringCodec{}, flink.Int64Codec{})

		m, err := table.Mapping(3)
		Expect(err).NotTo(HaveOccurred())
		Expect(m).NotTo(BeNil())
		Expect(m).To(BeEmpty())

		for kg := 0; kg <= 7; kg++ {
			if kg == 3 {
				continue
			}
			m, err := table.Mapping(kg)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil(), "for key group %d", kg)
		}
	})

	It("should merge artifacts covering disjoint ranges", func() {
		a := newTestBackend(0, 3)
		Expect(seedBackend(a)).To(Succeed())
		snapA, err := takeSnapshot(a)
		Expect(err).NotTo(HaveOccurred())

		b := newTestBackend(4, 7)
		Expect(seedBackend(b)).To(Succeed())
		snapB, err := takeSnapshot(b)
		Expect(err).NotTo(HaveOccurred())

		restored, err := restoreBackend(0, 7, snapA, nil, snapB)
		Expect(err).NotTo(HaveOccurred())

		counts := restored.StateTable("counts", flink.StringCodec{}, flink.Int64Codec{})
		for kg := 0; kg <= 7; kg++ {
			v, ok, err := counts.Get(kg, "ns", fmt.Sprintf("key-%d-0", kg))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue(), "for key group %d", kg)
			Expect(v).To(Equal(int64(kg * 10)))
		}

		// "sparse" was written at the first owned key group of each
		// half; both entries must survive the merge unmixed
		sparse := restored.StateTable("sparse", flink.StringCodec{}, flink.BytesCodec{})
		for _, kg := range []int{0, 4} {
			_, ok, err := sparse.Get(kg, "ns", "only")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue(), "for key group %d", kg)
		}
		for _, kg := range []int{1, 2, 3, 5, 6, 7} {
			m, err := sparse.Mapping(kg)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil(), "for key group %d", kg)
		}
	})

	It("should restore only the owned sub-range after a rescale", func() {
		backend := newTestBackend(0, 7)
		Expect(seedBackend(backend)).To(Succeed())
		snap, err := takeSnapshot(backend)
		Expect(err).NotTo(HaveOccurred())

		restored, err := restoreBackend(4, 7, snap)
		Expect(err).NotTo(HaveOccurred())

		counts := restored.StateTable("counts", flink.StringCodec{}, flink.Int64Codec{})
		for kg := 4; kg <= 7; kg++ {
			_, ok, err := counts.Get(kg, "ns", fmt.Sprintf("key-%d-0", kg))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue(), "for key group %d", kg)
		}

		// key groups below 4 belong to another instance now
		_, err = counts.Mapping(3)
		Expect(err).To(MatchError("flink: key group not owned: key group 3 is outside the owned range [4, 7]"))
	})

	It("should register states even when no key groups overlap", func() {
		backend := newTestBackend(0, 7)
		Expect(seedBackend(backend)).To(Succeed())
		snap, err := takeSnapshot(backend)
		Expect(err).NotTo(HaveOccurred())

		restored, err := restoreBackend(8, 15, snap)
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.NumRegisteredStates()).To(Equal(2))

		counts := restored.StateTable("counts", flink.StringCodec{}, flink.Int64Codec{})
		for kg := 8; kg <= 15; kg++ {
			m, err := counts.Mapping(kg)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil(), "for key group %d", kg)
		}
	})

	It("should keep tables created before the snapshot identical after repeated creation", func() {
		backend := newTestBackend(0, 7)
		Expect(seedBackend(backend)).To(Succeed())
		snap, err := takeSnapshot(backend)
		Expect(err).NotTo(HaveOccurred())

		restored, err := restoreBackend(0, 7, snap)
		Expect(err).NotTo(HaveOccurred())

		t1 := restored.StateTable("counts", flink.StringCodec{}, flink.Int64Codec{})
		t2 := restored.StateTable("counts", flink.StringCodec{}, flink.Int64Codec{})
		Expect(t2).To(BeIdenticalTo(t1))
	})

	It("should detect key-group index mismatches", func() {
		backend := newTestBackend(0, 7)
		Expect(seedBackend(backend)).To(Succeed())
		snap, err := takeSnapshot(backend)
		Expect(err).NotTo(HaveOccurred())

		// swap the offsets of key groups 0 and 1
		tampered := flink.NewKeyGroupRangeOffsets(snap.Offsets.KeyGroupRange())
		for kg := 0; kg <= 7; kg++ {
			src := kg
			if kg == 0 {
				src = 1
			} else if kg == 1 {
				src = 0
			}
			off, ok := snap.Offsets.Offset(src)
			Expect(ok).To(BeTrue())
			Expect(tampered.SetOffset(kg, off)).To(Succeed())
		}

		off1, _ := snap.Offsets.Offset(1)
		_, err = restoreBackend(0, 7, &flink.Snapshot{
			CheckpointID: snap.CheckpointID,
			Timestamp:    snap.Timestamp,
			Offsets:      tampered,
			Handle:       snap.Handle,
		})
		Expect(err).To(MatchError(fmt.Sprintf("flink: corrupt checkpoint artifact: expected key group 0 at offset %d, found 1", off1)))
	})

	It("should detect conflicting codec descriptors across artifacts", func() {
		a := newTestBackend(0, 3)
		a.StateTable("words", flink.StringCodec{}, flink.Int64Codec{})
		snapA, err := takeSnapshot(a)
		Expect(err).NotTo(HaveOccurred())

		b := newTestBackend(4, 7)
		b.StateTable("words", flink.StringCodec{}, flink.BytesCodec{})
		snapB, err := takeSnapshot(b)
		Expect(err).NotTo(HaveOccurred())

		_, err = restoreBackend(0, 7, snapA, snapB)
		Expect(err).To(MatchError(`flink: conflicting codec descriptors: state "words" re-declared with different descriptors`))
	})

	It("should release every stream it opens", func() {
		backend := newTestBackend(0, 7)
		Expect(seedBackend(backend)).To(Succeed())
		snap, err := takeSnapshot(backend)
		Expect(err).NotTo(HaveOccurred())

		closers := flink.NewCloserRegistry()
		_, err = flink.NewBackendFromSnapshots(
			flink.StringCodec{}, totalKeyGroups,
			flink.KeyGroupRange{Start: 0, End: 7},
			closers, flink.NewCodecRegistry(),
			[]*flink.Snapshot{snap},
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(closers.NumRegistered()).To(Equal(0))
	})
})
