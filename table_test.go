package flink_test

import (
	"github.com/haozhongli/flink"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StateTable", func() {
	var subject *flink.StateTable

	BeforeEach(func() {
		backend := newTestBackend(0, 7)
		subject = backend.StateTable("words", flink.StringCodec{}, flink.Int64Codec{})
	})

	It("should expose its codecs and range", func() {
		Expect(subject.KeyGroupRange()).To(Equal(flink.KeyGroupRange{Start: 0, End: 7}))
		Expect(subject.NamespaceCodec()).To(Equal(flink.StringCodec{}))
		Expect(subject.ValueCodec()).To(Equal(flink.Int64Codec{}))
	})

	It("should start with absent slots", func() {
		for kg := 0; kg <= 7; kg++ {
			m, err := subject.Mapping(kg)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		}
	})

	It("should materialize slots lazily on write", func() {
		Expect(subject.Put(2, "ns", "hello", int64(3))).To(Succeed())

		m, err := subject.Mapping(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(HaveLen(1))

		v, ok, err := subject.Get(2, "ns", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int64(3)))
	})

	It("should report absent values", func() {
		Expect(subject.Put(2, "ns", "hello", int64(3))).To(Succeed())

		_, ok, err := subject.Get(2, "ns", "other")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		_, ok, err = subject.Get(3, "ns", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should keep (namespace, key) pairs independent", func() {
		Expect(subject.Put(2, "window-1", "hello", int64(1))).To(Succeed())
		Expect(subject.Put(2, "window-2", "hello", int64(2))).To(Succeed())

		v, _, err := subject.Get(2, "window-1", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(1)))

		v, _, err = subject.Get(2, "window-2", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(2)))
	})

	It("should remove values and empty namespaces", func() {
		Expect(subject.Put(2, "ns", "hello", int64(3))).To(Succeed())
		Expect(subject.Remove(2, "ns", "hello")).To(Succeed())

		_, ok, err := subject.Get(2, "ns", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		m, err := subject.Mapping(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(m).NotTo(BeNil())
		Expect(m).To(BeEmpty())

		Expect(subject.Remove(3, "ns", "hello")).To(Succeed())
	})

	It("should replace slots wholesale", func() {
		m := flink.NamespaceMap{"ns": {"hello": int64(3)}}
		Expect(subject.SetMapping(2, m)).To(Succeed())

		v, ok, err := subject.Get(2, "ns", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int64(3)))
	})

	It("should fail loudly outside the owned range", func() {
		Expect(subject.SetMapping(12, flink.NamespaceMap{})).To(MatchError("flink: key group not owned: key group 12 is outside the owned range [0, 7]"))
		Expect(subject.Put(-1, "ns", "hello", int64(3))).To(MatchError("flink: key group not owned: key group -1 is outside the owned range [0, 7]"))

		_, err := subject.Mapping(8)
		Expect(err).To(MatchError("flink: key group not owned: key group 8 is outside the owned range [0, 7]"))

		_, _, err = subject.Get(8, "ns", "hello")
		Expect(err).To(MatchError("flink: key group not owned: key group 8 is outside the owned range [0, 7]"))
	})
})
