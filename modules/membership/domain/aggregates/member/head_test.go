package member_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testMember(first string, opts ...member.Option) member.Member {
	opts = append([]member.Option{member.WithID(uuid.New())}, opts...)
	return member.New(uuid.New(), uuid.New(), first, "Tester", opts...)
}

func TestHeadBySequence(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, ok := member.HeadBySequence(nil)
		assert.False(t, ok)
	})

	t.Run("prefers head_of_house sequence", func(t *testing.T) {
		members := []member.Member{
			testMember("Child", member.WithSequence(member.SequenceChild)),
			testMember("Head", member.WithSequence(member.SequenceHeadOfHouse)),
			testMember("Spouse", member.WithSequence(member.SequenceSpouse)),
		}
		head, ok := member.HeadBySequence(members)
		require.True(t, ok)
		assert.Equal(t, "Head", head.FirstName())
	})

	t.Run("falls back to first encountered", func(t *testing.T) {
		members := []member.Member{
			testMember("First", member.WithSequence(member.SequenceChild)),
			testMember("Second", member.WithSequence(member.SequenceSpouse)),
		}
		head, ok := member.HeadBySequence(members)
		require.True(t, ok)
		assert.Equal(t, "First", head.FirstName())
	})

	t.Run("first head wins when two are marked", func(t *testing.T) {
		members := []member.Member{
			testMember("A", member.WithSequence(member.SequenceHeadOfHouse)),
			testMember("B", member.WithSequence(member.SequenceHeadOfHouse)),
		}
		head, ok := member.HeadBySequence(members)
		require.True(t, ok)
		assert.Equal(t, "A", head.FirstName())
	})
}

func TestHeadByDemographics(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, ok := member.HeadByDemographics(nil)
		assert.False(t, ok)
	})

	t.Run("male wins over older female", func(t *testing.T) {
		members := []member.Member{
			testMember("Jane", member.WithSex(member.SexFemale), member.WithDateOfBirth(date(1940, 1, 1))),
			testMember("John", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1950, 1, 1))),
		}
		head, ok := member.HeadByDemographics(members)
		require.True(t, ok)
		assert.Equal(t, "John", head.FirstName())
	})

	t.Run("earliest born male wins", func(t *testing.T) {
		members := []member.Member{
			testMember("Young", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1980, 5, 2))),
			testMember("Old", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1955, 3, 4))),
		}
		head, ok := member.HeadByDemographics(members)
		require.True(t, ok)
		assert.Equal(t, "Old", head.FirstName())
	})

	t.Run("male without birth date sorts after male with one", func(t *testing.T) {
		members := []member.Member{
			testMember("NoDOB", member.WithSex(member.SexMale)),
			testMember("HasDOB", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1990, 1, 1))),
		}
		head, ok := member.HeadByDemographics(members)
		require.True(t, ok)
		assert.Equal(t, "HasDOB", head.FirstName())
	})

	t.Run("sole male without birth date still wins", func(t *testing.T) {
		members := []member.Member{
			testMember("Jane", member.WithSex(member.SexFemale), member.WithDateOfBirth(date(1940, 1, 1))),
			testMember("John", member.WithSex(member.SexMale)),
		}
		head, ok := member.HeadByDemographics(members)
		require.True(t, ok)
		assert.Equal(t, "John", head.FirstName())
	})

	t.Run("no male falls back to earliest birth date", func(t *testing.T) {
		members := []member.Member{
			testMember("Younger", member.WithSex(member.SexFemale), member.WithDateOfBirth(date(1960, 6, 1))),
			testMember("Elder", member.WithSex(member.SexFemale), member.WithDateOfBirth(date(1935, 2, 10))),
		}
		head, ok := member.HeadByDemographics(members)
		require.True(t, ok)
		assert.Equal(t, "Elder", head.FirstName())
	})

	t.Run("equal birth dates keep input order", func(t *testing.T) {
		members := []member.Member{
			testMember("A", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1970, 1, 1))),
			testMember("B", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1970, 1, 1))),
		}
		head, ok := member.HeadByDemographics(members)
		require.True(t, ok)
		assert.Equal(t, "A", head.FirstName())
	})

	t.Run("all nil birth dates keep input order", func(t *testing.T) {
		members := []member.Member{
			testMember("A"),
			testMember("B"),
		}
		head, ok := member.HeadByDemographics(members)
		require.True(t, ok)
		assert.Equal(t, "A", head.FirstName())
	})

	t.Run("pure over repeated calls", func(t *testing.T) {
		members := []member.Member{
			testMember("Jane", member.WithSex(member.SexFemale), member.WithDateOfBirth(date(1940, 1, 1))),
			testMember("John", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1950, 1, 1))),
			testMember("Kid", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1990, 1, 1))),
		}
		first, ok := member.HeadByDemographics(members)
		require.True(t, ok)
		for i := 0; i < 5; i++ {
			again, ok := member.HeadByDemographics(members)
			require.True(t, ok)
			assert.Equal(t, first.ID(), again.ID())
		}
	})
}

func TestResolveHead(t *testing.T) {
	members := []member.Member{
		testMember("Spouse", member.WithSex(member.SexFemale), member.WithSequence(member.SequenceHeadOfHouse)),
		testMember("Male", member.WithSex(member.SexMale), member.WithDateOfBirth(date(1950, 1, 1))),
	}

	bySeq, ok := member.ResolveHead(member.HeadPolicySequence, members)
	require.True(t, ok)
	assert.Equal(t, "Spouse", bySeq.FirstName())

	byDemo, ok := member.ResolveHead(member.HeadPolicyDemographics, members)
	require.True(t, ok)
	assert.Equal(t, "Male", byDemo.FirstName())
}

func TestParseHeadPolicy(t *testing.T) {
	p, err := member.ParseHeadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, member.HeadPolicySequence, p)

	p, err = member.ParseHeadPolicy("demographics")
	require.NoError(t, err)
	assert.Equal(t, member.HeadPolicyDemographics, p)

	_, err = member.ParseHeadPolicy("bogus")
	assert.Error(t, err)
}
